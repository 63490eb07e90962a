// Command veldt executes Veldt programs: run to completion, single-step,
// query the lifted knowledge graph, check consistency, and dump the graph.
// The interactive shell lives elsewhere; this binary is one-shot per
// command.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"veldt/internal/bridge"
	"veldt/internal/config"
	"veldt/internal/interp"
	"veldt/internal/lang"
	"veldt/internal/logging"
	"veldt/internal/lower"
	"veldt/internal/program"
	"veldt/internal/runtime"
)

var (
	cfgPath      string
	ontologyPath string
	verbose      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "veldt",
	Short: "Veldt - simulation language runtime with a semantic bridge",
	Long: `veldt executes Veldt simulation programs with a small-step interpreter
and lifts their live state into a queryable knowledge graph.

Programs arrive as AST documents produced by the veldt front-end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// session wires one program execution: static table, heap, bridge,
// interpreter.
type session struct {
	cfg config.Config
	in  *interp.Interpreter
	br  *bridge.Bridge
}

func newSession(programPath string) (*session, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
	}

	prog, err := lang.LoadProgram(programPath)
	if err != nil {
		return nil, err
	}
	table, err := program.Build(prog)
	if err != nil {
		return nil, fmt.Errorf("static table: %w", err)
	}

	heap := runtime.NewHeap()
	br, err := bridge.New(heap, table, bridge.Options{
		DomainNamespace: cfg.Bridge.DomainNamespace,
		ExtraPrefixes:   cfg.Bridge.Prefixes,
		Logger:          logger.Named("bridge"),
	})
	if err != nil {
		return nil, err
	}

	settings := cfg.Bridge.Settings()
	ontPath := cfg.Bridge.OntologyPath
	if ontologyPath != "" {
		ontPath = ontologyPath
	}
	if ontPath != "" {
		if err := br.AttachOntologyFile(ontPath); err != nil {
			return nil, err
		}
		settings.Sources.ExternalOntology = true
	}

	in, err := interp.New(table, heap, br, interp.Options{
		Logger:   logger.Named("interp"),
		Settings: &settings,
	})
	if err != nil {
		return nil, err
	}
	br.AttachSim(in.Sim)
	if err := in.Start(cfg.Run.EntryClass, cfg.Run.EntryMethod); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, in: in, br: br}, nil
}

// advance runs at most n steps (0 = to completion or the configured
// limit).
func (s *session) advance(n int) error {
	if n == 0 {
		n = s.cfg.Run.MaxSteps
	}
	if n == 0 {
		executed, err := s.in.Run()
		if err != nil {
			return fmt.Errorf("after %d steps: %w", executed, err)
		}
		logger.Debug("run complete", zap.Int("steps", executed))
		return nil
	}
	executed, done, err := s.in.RunSteps(n)
	if err != nil {
		return fmt.Errorf("after %d steps: %w", executed, err)
	}
	logger.Debug("run paused", zap.Int("steps", executed), zap.Bool("done", done))
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run [program.json]",
	Short: "Execute a program to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		if err := s.advance(0); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "terminated after %d steps, %d objects on heap\n",
			s.in.Steps(), s.in.Heap.Len())
		return nil
	},
}

var stepCount int

var stepCmd = &cobra.Command{
	Use:   "step [program.json]",
	Short: "Execute a bounded number of steps and report the state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		executed, done, err := s.in.RunSteps(stepCount)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "steps: %d  done: %t  stack depth: %d  heap: %d objects\n",
			executed, done, s.in.Stack.Len(), s.in.Heap.Len())
		if top, ok := s.in.Stack.Top(); ok && len(top.Stmts) > 0 {
			fmt.Fprintf(out, "next: %s\n", top.Stmts[0].String())
		}
		for _, ref := range s.in.Heap.Refs() {
			class, _ := s.in.Heap.ClassOf(ref)
			fields, _ := s.in.Heap.Fields(ref)
			fmt.Fprintf(out, "  %s : %s", ref, class)
			for _, name := range fields.Names() {
				v, _ := fields.Get(name)
				fmt.Fprintf(out, " %s=%s", name, v.String())
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var (
	querySteps int
	queryLower bool
)

var queryCmd = &cobra.Command{
	Use:   "query [program.json] [query]",
	Short: "Run a structured query against the lifted graph",
	Long: `Advances the program (see --steps), lifts its state under the configured
sources, and executes a SELECT query. With --lower the first column is
lowered into a heap list and printed in traversal order.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		if querySteps > 0 {
			if _, _, err := s.in.RunSteps(querySteps); err != nil {
				return err
			}
		}
		rs, err := s.br.Query(args[1], s.in.Settings)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !queryLower {
			for _, row := range rs.Rows {
				for i, v := range row {
					if i > 0 {
						fmt.Fprint(out, "\t")
					}
					fmt.Fprint(out, s.br.Prefixes().Compact(v))
				}
				fmt.Fprintln(out)
			}
			return nil
		}
		head, err := lower.Lower(s.in.Heap, rs.First(), s.br.Prefixes().LocalName)
		if err != nil {
			return err
		}
		return printList(out, s.in.Heap, head)
	},
}

var membersSteps int

var membersCmd = &cobra.Command{
	Use:   "members [program.json] [class]",
	Short: "List the members of a class expression",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		if membersSteps > 0 {
			if _, _, err := s.in.RunSteps(membersSteps); err != nil {
				return err
			}
		}
		members, err := s.br.ClassMembers(args[1], s.in.Settings)
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Fprintln(cmd.OutOrStdout(), s.br.Prefixes().Compact(m))
		}
		return nil
	},
}

var checkSteps int

var checkCmd = &cobra.Command{
	Use:   "check [program.json]",
	Short: "Check consistency of the lifted graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		if checkSteps > 0 {
			if _, _, err := s.in.RunSteps(checkSteps); err != nil {
				return err
			}
		}
		consistent, err := s.br.CheckConsistency(s.in.Settings)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "consistent: %t\n", consistent)
		return nil
	},
}

var (
	dumpSteps int
	dumpOut   string
)

var dumpCmd = &cobra.Command{
	Use:   "dump [program.json]",
	Short: "Serialize the materializable graph in triple form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args[0])
		if err != nil {
			return err
		}
		if dumpSteps > 0 {
			if _, _, err := s.in.RunSteps(dumpSteps); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if dumpOut != "" {
			f, err := os.Create(dumpOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return s.br.Dump(w, s.in.Settings)
	},
}

// printList walks a lowered list and prints each cell's content.
func printList(out io.Writer, heap *runtime.Heap, head runtime.Value) error {
	for cur := head; cur.Kind == runtime.KindRef; {
		fields, ok := heap.Fields(cur.Ref)
		if !ok {
			return fmt.Errorf("broken list cell %s", cur.Ref)
		}
		content, _ := fields.Get(lower.FieldContent)
		fmt.Fprintln(out, content.String())
		cur, _ = fields.Get(lower.FieldNext)
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&ontologyPath, "ontology", "", "path to domain ontology document")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	stepCmd.Flags().IntVarP(&stepCount, "steps", "n", 1, "number of steps to execute")
	queryCmd.Flags().IntVar(&querySteps, "steps", 0, "steps to execute before querying")
	queryCmd.Flags().BoolVar(&queryLower, "lower", false, "lower the first column into a heap list")
	membersCmd.Flags().IntVar(&membersSteps, "steps", 0, "steps to execute before querying")
	checkCmd.Flags().IntVar(&checkSteps, "steps", 0, "steps to execute before checking")
	dumpCmd.Flags().IntVar(&dumpSteps, "steps", 0, "steps to execute before dumping")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(runCmd, stepCmd, queryCmd, membersCmd, checkCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
