package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata" // tour time zones resolve on hosts without zoneinfo

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tourline/internal/app"
	"tourline/internal/config"
	"tourline/internal/domain"
	"tourline/internal/engine"
	"tourline/internal/repo"
	"tourline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Tourline CLI",
	Long: `Tourline imports MyTourbook MT exports into a local tour store.
Core concepts:
- Workspace: a directory holding .tourline/tourline.db and an optional tourline.yml.
- Import: every file is read on its own; a broken file never undoes the others.
- Duplicates: a tour whose id is already stored is reported, never written twice.
- Tags and tour types: created on first use and shared by every later tour.
- Sensors: registered up front (config or 'tl sensors add'); imports only look them up.
- Event log: everything an import did, view with 'tl log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TOURLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("config", "", "config file (defaults to the workspace tourline.yml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(toursCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(typesCmd())
	rootCmd.AddCommand(sensorsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import MT exports",
		Long:  "Imports files and directories. Directories are walked for the configured extensions.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.Import(ctx, engine.ImportOptions{Paths: args, ActorID: viper.GetString("actor-id")})
				if err != nil && report.Run.ID == "" {
					return err
				}
				if perr := printImportReport(report); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	return cmd
}

func toursCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tours", Short: "Inspect imported tours"}
	cmd.AddCommand(toursListCmd())
	cmd.AddCommand(toursShowCmd())
	cmd.AddCommand(toursExportCmd())
	return cmd
}

func toursListCmd() *cobra.Command {
	var f repo.TourFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tours, err := e.Repo.ListTours(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tours)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Start", "Title", "Type", "Tags", "Distance", "Elapsed"})
				for _, t := range tours {
					tw.AppendRow(table.Row{t.ID, t.StartTime, t.Title, t.TourType, strings.Join(t.Tags, ", "), t.Distance, time.Duration(t.ElapsedTime) * time.Second})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Tag, "tag", "", "tag filter")
	cmd.Flags().StringVar(&f.TourType, "type", "", "tour type filter")
	cmd.Flags().StringVar(&f.RunID, "run", "", "import run filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum number of tours")
	return cmd
}

func toursShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <tour-id>",
		Short: "Show a tour with its collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tour id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTour(ctx, domain.TourID(id))
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	return cmd
}

func toursExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tour summaries as Parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				n, err := e.ExportParquet(ctx, f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"path": out, "tours": n})
				}
				fmt.Printf("wrote %d tours to %s\n", n, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "tours.parquet", "output file")
	return cmd
}

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tags", Short: "Tag registry"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tags, err := e.Repo.ListTags(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tags)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, t := range tags {
					tw.AppendRow(table.Row{t.ID, t.Name, t.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func typesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "types", Short: "Tour type registry"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tour types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				types, err := e.Repo.ListTourTypes(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(types)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, t := range types {
					tw.AppendRow(table.Row{t.ID, t.Name, t.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func sensorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Sensor registry",
		Long:  "Sensors are looked up by id during an import and never created by one. Register them here or under sensors: in tourline.yml.",
	}
	cmd.AddCommand(sensorsListCmd())
	cmd.AddCommand(sensorsAddCmd())
	return cmd
}

func sensorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sensors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sensors, err := e.Repo.ListSensors(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sensors)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Sensor ID", "Name", "Manufacturer", "Product", "Serial"})
				for _, s := range sensors {
					tw.AppendRow(table.Row{s.SensorID, s.Name, s.Manufacturer, s.Product, s.SerialNumber})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func sensorsAddCmd() *cobra.Command {
	var s domain.Sensor
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stored, err := e.AddSensor(ctx, s, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(stored)
			})
		},
	}
	cmd.Flags().Int64Var(&s.SensorID, "id", 0, "sensor id as written in exports")
	cmd.Flags().StringVar(&s.Name, "name", "", "sensor name")
	cmd.Flags().StringVar(&s.Manufacturer, "manufacturer", "", "manufacturer")
	cmd.Flags().StringVar(&s.Product, "product", "", "product")
	cmd.Flags().StringVar(&s.SerialNumber, "serial", "", "serial number")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of every import: runs, files, tours, duplicates, created tags and types, unresolved sensors.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.RunID, "run", "", "import run filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in tourline.yml (or tourline.toml) next to the workspace database. Without one the defaults apply.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default tourline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(viper.GetString("workspace"), config.FileYAML)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for tl serve",
	}
	cmd.AddCommand(apiKeyCreateCmd())
	cmd.AddCommand(apiKeyListCmd())
	cmd.AddCommand(apiKeyRevokeCmd())
	return cmd
}

func apiKeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				secret, err := newAPIKey()
				if err != nil {
					return err
				}
				key := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: viper.GetString("actor-id"),
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
				}
				if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "actor_id": key.ActorID, "key": secret})
				}
				fmt.Printf("id:  %s\nkey: %s\nStore the key now; it is not shown again.\n", key.ID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys of the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	var maxUpload int64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the import API. Bearer tokens are signed with TOURLINE_JWT_SECRET; API keys come from 'tl apikey create'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("TOURLINE_JWT_SECRET is required for bearer auth")
			}
			logger := newLogger()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if !cmd.Flags().Changed("addr") && e.Config.Server.Addr != "" {
					addr = e.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && e.Config.Server.BasePath != "" {
					basePath = e.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:         e,
					BasePath:       basePath,
					Auth:           server.AuthConfig{JWTSecret: secret, AllowDevLogin: devLogin, Logger: logger},
					MaxUploadBytes: maxUpload,
					Logger:         logger,
				})
				if err != nil {
					return err
				}
				server.StartWebhooks(ctx, e, logger)

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving", "addr", addr, "base_path", basePath)
				fmt.Printf("Serving Tourline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable the token minting endpoint")
	cmd.Flags().Int64Var(&maxUpload, "max-upload-bytes", 32<<20, "largest accepted upload")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, conn, err := app.OpenEngine(ctx, viper.GetString("workspace"), viper.GetString("config"), viper.GetString("actor-id"), newLogger())
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "tl_" + hex.EncodeToString(b), nil
}

func printImportReport(r engine.ImportReport) error {
	if viper.GetBool("json") {
		return printJSON(r)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"File", "Status", "Imported", "Duplicates", "Created", "Error"})
	for _, f := range r.Files {
		created := f.CreatedTags
		if f.CreatedTourType != "" {
			created = append(append([]string(nil), created...), "type:"+f.CreatedTourType)
		}
		tw.AppendRow(table.Row{f.Path, f.Status, len(f.Imported), len(f.Duplicates), strings.Join(created, ", "), f.Error})
	}
	tw.AppendFooter(table.Row{"run " + r.Run.ID, "", r.Run.Imported, r.Run.Duplicates, "", fmt.Sprintf("%d failed, %d skipped", r.Run.Failed, r.Run.Skipped)})
	tw.Render()
	return nil
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
