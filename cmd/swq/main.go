package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/app"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/db"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/engine"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/migrate"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "swq",
	Short: "Sweaquity CLI",
	Long: `Sweaquity tracks equity-for-work projects end to end.
Core concepts:
- Workspace: your .sweaquity directory holding the SQLite ledger; per-project
  document config is stored in the DB and imported explicitly.
- Project: owns a fixed equity pool (equity_allocation) set at creation; the
  committed share (equity_allocated) only ever grows through task approval.
- Tasks: work items carrying an equity stake and an hour estimate; statuses go
  open -> in_progress -> review -> approved -> done (blocked is a detour).
- Time entries: append-only logged hours; completion is derived from hours
  against the estimate and never edited directly.
- Applications and accepted jobs: a candidate applies to a task, acceptance
  creates the accepted job that anchors contracts and the equity agreement.
- Legal documents: nda, work_contract and award_agreement rendered from
  templates; draft -> review -> final -> executed, with amended/terminated as
  administrative exits. Signing is recorded separately from status.
- Event log: diary of every change, view with 'swq log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SWEAQUITY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides single-project default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(timeCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(applicationCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(signaturesCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- project ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectStatusCmd())
	prj.AddCommand(projectConfigCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var id, title, desc string
	var equity float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its equity pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg := config.Default(id)
			if fileCfg, ferr := config.LoadOptional(workspace); ferr == nil && fileCfg != nil {
				cfg = fileCfg
			}
			e := engine.New(conn, cfg)
			p, err := e.InitProject(cmd.Context(), id, title, equity, desc, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printJSONOrTable(p)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().Float64Var(&equity, "equity-allocation", 0, "total equity pool percent")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("equity-allocation")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Pool %", "Allocated %", "Completion"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Status, p.EquityAllocation, p.EquityAllocated, fmt.Sprintf("%d%%", p.CompletionPercentage)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Equity and completion summary for the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, e.Config.Project.ID)
				if err != nil {
					return err
				}
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{ProjectID: p.ID})
				if err != nil {
					return err
				}
				counts := map[string]int{}
				for _, t := range tasks {
					counts[string(t.Status)]++
				}
				out := map[string]any{
					"project_id":            p.ID,
					"status":                p.Status,
					"equity_allocation":     p.EquityAllocation,
					"equity_allocated":      p.EquityAllocated,
					"equity_remaining":      p.EquityAllocation - p.EquityAllocated,
					"completion_percentage": p.CompletionPercentage,
					"task_counts":           counts,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Project: %s (%s)\n", p.ID, p.Status)
				fmt.Printf("Equity: %.2f%% allocated of %.2f%% pool (%.2f%% remaining)\n",
					p.EquityAllocated, p.EquityAllocation, p.EquityAllocation-p.EquityAllocated)
				fmt.Printf("Completion: %d%%\n", p.CompletionPercentage)
				fmt.Println("Tasks:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
}

func projectConfigCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage project document config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show config stored in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	})
	cfg.AddCommand(projectConfigImportCmd())
	cfg.AddCommand(projectConfigInitCmd())
	return cfg
}

func projectConfigImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from YAML into the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			projectID := cfg.Project.ID
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if projectID == "" {
					projectID = e.Config.Project.ID
				}
				if err := e.Repo.UpsertProjectConfig(ctx, projectID, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func projectConfigInitCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default sweaquity.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				projectID = viper.GetString("project")
			}
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(projectID)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "id", "", "project id to seed")
	return cmd
}

// --- task ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks carry an equity stake and an hour estimate. Logged time drives completion; approval commits the stake against the project pool.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskRmCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					opts.ProjectID = e.Config.Project.ID
				}
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Float64Var(&opts.EquityAllocation, "equity", 0, "equity stake percent")
	cmd.Flags().Float64Var(&opts.EstimatedHours, "estimated-hours", 0, "estimated hours")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if f.ProjectID == "" {
					f.ProjectID = e.Config.Project.ID
				}
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Equity %", "Hours", "Completion"})
				for _, t := range tasks {
					est := "-"
					if t.EstimatedHours != nil {
						est = fmt.Sprintf("%.1f/%.1f", t.HoursLogged, *t.EstimatedHours)
					} else if t.HoursLogged > 0 {
						est = fmt.Sprintf("%.1f", t.HoursLogged)
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.EquityAllocation, est, fmt.Sprintf("%d%%", t.CompletionPercentage)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Move a task between statuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := domain.ParseTaskStatus(status)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTaskStatus(ctx, args[0], target, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func taskRmCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Archive and delete a task (blocked once work is logged)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if dryRun {
					ok, reason, err := e.CanDeleteTask(ctx, id)
					if err != nil {
						return err
					}
					return printJSONOrTable(map[string]any{"can_delete": ok, "reason": reason})
				}
				if err := e.SoftDeleteTask(ctx, id, viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Println("archived", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report whether deletion is allowed")
	return cmd
}

// --- time ---

func timeCmd() *cobra.Command {
	tc := &cobra.Command{Use: "time", Short: "Log and inspect time entries"}
	tc.AddCommand(timeLogCmd())
	tc.AddCommand(timeListCmd())
	return tc
}

func timeLogCmd() *cobra.Command {
	var hours float64
	var desc string
	cmd := &cobra.Command{
		Use:   "log <task-id>",
		Short: "Log hours against a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.LogEffort(ctx, args[0], viper.GetString("actor-id"), hours, desc)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().Float64Var(&hours, "hours", 0, "hours worked (positive)")
	cmd.Flags().StringVar(&desc, "description", "", "what was done")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func timeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List time entries for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTimeEntries(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

// --- approve ---

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <task-id>",
		Short: "Approve a task and commit its equity stake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ApproveTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
}

// --- application ---

func applicationCmd() *cobra.Command {
	a := &cobra.Command{Use: "application", Short: "Manage job applications"}
	a.AddCommand(applicationCreateCmd())
	a.AddCommand(applicationAcceptCmd())
	a.AddCommand(applicationListCmd())
	return a
}

func applicationCreateCmd() *cobra.Command {
	var opts engine.ApplicationCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Apply a candidate to a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateApplication(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "application id (optional)")
	cmd.Flags().StringVar(&opts.TaskID, "task", "", "task id")
	cmd.Flags().StringVar(&opts.ApplicantID, "applicant", "", "applicant id")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("applicant")
	return cmd
}

func applicationAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept an application, creating the accepted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				job, err := e.AcceptApplication(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(job)
			})
		},
	}
}

func applicationListCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListApplications(ctx, taskID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

// --- doc ---

func docCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "doc",
		Short: "Generate and manage legal documents",
		Long:  "Documents are rendered from templates and tied to their owning record: nda to an application, work_contract and award_agreement to an accepted job.",
	}
	d.AddCommand(docGenerateCmd())
	d.AddCommand(docAdvanceCmd())
	d.AddCommand(docShowCmd())
	d.AddCommand(docListCmd())
	return d
}

func docGenerateCmd() *cobra.Command {
	var opts engine.GenerateDocumentOptions
	var docType string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a document in draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			opts.Type = parsed
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.GenerateDocument(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(doc)
			})
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", "nda, work_contract or award_agreement")
	cmd.Flags().StringVar(&opts.ApplicationID, "application", "", "application id (nda)")
	cmd.Flags().StringVar(&opts.AcceptedJobID, "accepted-job", "", "accepted job id (contracts)")
	cmd.Flags().StringVar(&opts.BusinessID, "business", "", "business reference")
	cmd.Flags().StringVar(&opts.CounterpartyID, "counterparty", "", "counterparty reference")
	cmd.Flags().StringVar(&opts.BusinessName, "business-name", "", "business display name")
	cmd.Flags().StringVar(&opts.CounterpartyName, "counterparty-name", "", "counterparty display name")
	cmd.Flags().StringVar(&opts.Deliverables, "deliverables", "", "deliverables text (award agreement)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func docAdvanceCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Move a document through its lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := domain.ParseDocumentStatus(status)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.AdvanceDocumentStatus(ctx, args[0], target, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(doc)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "target status")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func docShowCmd() *cobra.Command {
	var contentOnly bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				doc, err := r.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				if contentOnly {
					fmt.Println(doc.Content)
					return nil
				}
				return printJSONOrTable(doc)
			})
		},
	}
	cmd.Flags().BoolVar(&contentOnly, "content", false, "print rendered text only")
	return cmd
}

func docListCmd() *cobra.Command {
	var acceptedJobID, applicationID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListDocuments(ctx, acceptedJobID, applicationID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Status", "Version", "Executed"})
				for _, d := range items {
					executed := ""
					if d.ExecutedAt != nil {
						executed = *d.ExecutedAt
					}
					tw.AppendRow(table.Row{d.ID, d.Type, d.Status, d.Version, executed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&acceptedJobID, "accepted-job", "", "filter by accepted job")
	cmd.Flags().StringVar(&applicationID, "application", "", "filter by application")
	return cmd
}

// --- sign ---

func signCmd() *cobra.Command {
	var payload, remarks string
	cmd := &cobra.Command{
		Use:   "sign <document-id>",
		Short: "Record a signature on a document in review or final",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sig, err := e.SignDocument(ctx, args[0], viper.GetString("actor-id"), payload, remarks)
				if err != nil {
					return err
				}
				return printJSONOrTable(sig)
			})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "signature payload (typed name, hash, ...)")
	cmd.Flags().StringVar(&remarks, "remarks", "", "optional remarks")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func signaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signatures <document-id>",
		Short: "List signatures on a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSignatures(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

// --- log ---

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.LatestEvents(ctx, n, e.Config.Project.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- apikey ---

func apikeyCmd() *cobra.Command {
	a := &cobra.Command{Use: "apikey", Short: "Manage API keys for the HTTP server"}
	a.AddCommand(apikeyCreateCmd())
	a.AddCommand(apikeyListCmd())
	a.AddCommand(apikeyDeleteCmd())
	return a
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (the raw key is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.New().String()
				key := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   viper.GetString("actor-id"),
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{"id": key.ID, "key": raw, "name": key.Name})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "filter by actor")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

// --- token ---

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP server",
		Long: `Mints an HS256 bearer token for the actor given by --actor-id, signed
with SWEAQUITY_JWT_SECRET. Intended for local development and scripting;
production callers should carry their own tokens or use API keys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("SWEAQUITY_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("SWEAQUITY_JWT_SECRET is required to mint tokens")
			}
			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:   viper.GetString("actor-id"),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveProjectAndConfig(cmd.Context(), workspace, viper.GetString("project"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("SWEAQUITY_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("SWEAQUITY_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Sweaquity API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveProjectAndConfig(ctx, workspace, viper.GetString("project"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
