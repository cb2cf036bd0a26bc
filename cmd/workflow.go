package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentflow/model"
	"agentflow/workflow"

	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run a tool-free workflow over the configured model",
}

var (
	chainPrompts   []string
	parallelPrompt string
	parallelN      int
	routeSpecs     []string
	refineEval     string
	refineGen      string
	refineRounds   int
)

var chainCmd = &cobra.Command{
	Use:   "chain [input]",
	Short: "Feed input through each --prompt in turn",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(chainPrompts) == 0 {
			return fmt.Errorf("at least one --prompt is required")
		}
		return withProvider(cmd, func(run workflowRun) error {
			out, err := workflow.Chain(run.ctx, run.p, strings.Join(args, " "), chainPrompts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var parallelCmd = &cobra.Command{
	Use:   "parallel [input...]",
	Short: "Apply --prompt to every input concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProvider(cmd, func(run workflowRun) error {
			outs, err := workflow.Parallel(run.ctx, run.p, parallelPrompt, args, parallelN)
			if err != nil {
				return err
			}
			for i, out := range outs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n", labelStyle.Render(fmt.Sprintf("[%d] %s", i+1, preview(args[i], 60))), out)
			}
			return nil
		})
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [input]",
	Short: "Let the model pick one --route and answer with it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, err := parseRoutes(routeSpecs)
		if err != nil {
			return err
		}
		return withProvider(cmd, func(run workflowRun) error {
			res, err := workflow.Route(run.ctx, run.p, strings.Join(args, " "), routes)
			if res != nil && verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("route: "+res.Route+"\n"+res.Reasoning))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		})
	},
}

var refineCmd = &cobra.Command{
	Use:   "refine [task]",
	Short: "Generate and evaluate until the evaluator passes the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProvider(cmd, func(run workflowRun) error {
			res, err := workflow.Refine(run.ctx, run.p, strings.Join(args, " "), refineEval, refineGen, refineRounds)
			if res != nil && verbose {
				for i, at := range res.Attempts {
					fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("round %d: %s %s", i+1, at.Evaluation, preview(at.Feedback, 60))))
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		})
	},
}

func init() {
	chainCmd.Flags().StringArrayVarP(&chainPrompts, "prompt", "p", nil, "Step prompt (repeatable, applied in order)")
	parallelCmd.Flags().StringVarP(&parallelPrompt, "prompt", "p", "", "Prompt applied to each input")
	parallelCmd.Flags().IntVarP(&parallelN, "workers", "n", workflow.DefaultWorkers, "Concurrent calls")
	_ = parallelCmd.MarkFlagRequired("prompt")
	routeCmd.Flags().StringArrayVarP(&routeSpecs, "route", "r", nil, "Route as key=prompt (repeatable)")
	_ = routeCmd.MarkFlagRequired("route")
	refineCmd.Flags().StringVar(&refineEval, "evaluator", defaultEvaluatorPrompt, "Evaluator prompt")
	refineCmd.Flags().StringVar(&refineGen, "generator", defaultGeneratorPrompt, "Generator prompt")
	refineCmd.Flags().IntVar(&refineRounds, "rounds", workflow.DefaultRefineRounds, "Generations allowed before giving up")

	workflowCmd.AddCommand(chainCmd, parallelCmd, routeCmd, refineCmd)
}

const defaultGeneratorPrompt = `Your goal is to complete the task based on <user input>. If there is feedback from your previous generations, reflect on it to improve your solution.

Output your answer concisely in the following format:

<thoughts>
[Your understanding of the task and feedback and how you plan to improve]
</thoughts>

<response>
[Your answer here]
</response>`

const defaultEvaluatorPrompt = `Evaluate the following answer for correctness and completeness.
You should be evaluating only and not attempting to solve the task.
Only output "PASS" if all criteria are met and you have no further suggestions for improvements.
Output your evaluation concisely in the following format.

<evaluation>PASS, NEEDS_IMPROVEMENT, or FAIL</evaluation>
<feedback>
What needs improvement and why.
</feedback>`

func parseRoutes(specs []string) (map[string]string, error) {
	routes := make(map[string]string, len(specs))
	for _, spec := range specs {
		key, prompt, ok := strings.Cut(spec, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.TrimSpace(prompt) == "" {
			return nil, fmt.Errorf("invalid route %q, want key=prompt", spec)
		}
		routes[key] = prompt
	}
	return routes, nil
}

type workflowRun struct {
	ctx context.Context
	p   model.Provider
}

// withProvider runs fn with the configured provider and a context that is
// cancelled on Ctrl+C.
func withProvider(cmd *cobra.Command, fn func(run workflowRun) error) error {
	p, err := newProvider(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(workflowRun{ctx: ctx, p: p})
}
