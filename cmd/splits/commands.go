package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/api"
	"github.com/jagreenwood/healthkit-workout-splits/internal/config"
	"github.com/jagreenwood/healthkit-workout-splits/internal/db"
	"github.com/jagreenwood/healthkit-workout-splits/internal/fitimport"
	"github.com/jagreenwood/healthkit-workout-splits/internal/fsutil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/report"
	"github.com/jagreenwood/healthkit-workout-splits/internal/security"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

func openDB(cfg *config.SplitConfig) *db.DB {
	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return database
}

func splitOptions(cfg *config.SplitConfig) workout.Options {
	target, err := cfg.TargetMeters()
	if err != nil {
		log.Fatalf("Invalid split distance: %v", err)
	}
	return workout.Options{
		TargetMeters:      target,
		ExcludePausedTime: cfg.GetExcludePausedTime(),
	}
}

func newService(database *db.DB) *workout.Service {
	svc := workout.NewService(database, database)
	svc.Store = database
	return svc
}

func localTime(t time.Time, tz string) string {
	lt, err := units.ConvertTime(t, tz)
	if err != nil {
		lt = t
	}
	return lt.Format("2006-01-02 15:04")
}

func handleImport(cfg *config.SplitConfig, args []string) {
	if len(args) == 0 {
		log.Fatal("import requires at least one FIT file or directory")
	}
	fsys := fsutil.OSFileSystem{}
	paths, err := fsutil.FilesWithExt(fsys, args, ".fit")
	if err != nil {
		log.Fatalf("Failed to list FIT files: %v", err)
	}
	database := openDB(cfg)
	defer database.Close()

	ctx := context.Background()
	failed := 0
	for _, path := range paths {
		a, err := fitimport.Import(ctx, database, fsys, path)
		if err != nil {
			log.Printf("import %s: %v", path, err)
			failed++
			continue
		}
		fmt.Printf("%s\t%s\t%.0f m\n", a.ID, path, a.TotalDistanceMeters)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func handleList(cfg *config.SplitConfig, args []string) {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			log.Fatalf("invalid limit %q", args[0])
		}
		limit = n
	}
	database := openDB(cfg)
	defer database.Close()

	activities, err := database.ListActivities(context.Background(), limit)
	if err != nil {
		log.Fatalf("Failed to list activities: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tKIND\tDISTANCE\tNAME")
	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f %s\t%s\n",
			a.ID, localTime(a.Start, cfg.GetTimezone()), a.Kind,
			units.FromMeters(a.TotalDistanceMeters, cfg.GetSplitUnit()), cfg.GetSplitUnit(), a.Name)
	}
	if err := tw.Flush(); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

func handleCompute(cfg *config.SplitConfig, args []string) {
	if len(args) != 1 {
		log.Fatal("compute requires exactly one activity id")
	}
	database := openDB(cfg)
	defer database.Close()

	res, err := newService(database).ComputeSplits(context.Background(), args[0], splitOptions(cfg))
	if err != nil {
		log.Fatalf("Failed to compute splits (%s): %v", workout.Classify(err), err)
	}

	fmt.Printf("%s  %s  %s\n", res.Activity.Name, localTime(res.Activity.Start, cfg.GetTimezone()), res.RunID)
	if err := report.Table(os.Stdout, res.Splits, cfg.GetSplitUnit()); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	sum := report.Summarize(res.Splits)
	fmt.Printf("\nactive %s of %s, average %.2f %s\n",
		units.FormatDuration(res.ActiveSeconds), units.FormatDuration(res.ElapsedSeconds),
		units.ConvertSpeed(sum.AveragePace, cfg.GetDisplayUnits()), cfg.GetDisplayUnits())
}

func handleBatch(cfg *config.SplitConfig, args []string) {
	database := openDB(cfg)
	defer database.Close()

	ctx := context.Background()
	opts := splitOptions(cfg)
	ids := args
	if len(ids) == 0 {
		var err error
		ids, err = database.PendingActivities(ctx, opts, 0)
		if err != nil {
			log.Fatalf("Failed to list pending activities: %v", err)
		}
	}
	if len(ids) == 0 {
		log.Print("no activities to compute")
		return
	}

	items, err := newService(database).ComputeBatch(ctx, ids, opts, cfg.GetBatchWorkers())
	if err != nil {
		log.Fatalf("Batch interrupted: %v", err)
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
			fmt.Printf("%s\t%s\t%v\n", it.ActivityID, workout.Classify(it.Err), it.Err)
			continue
		}
		fmt.Printf("%s\tok\t%d splits\n", it.ActivityID, len(it.Result.Splits))
	}
	log.Printf("batch complete: %d ok, %d failed", len(items)-failed, failed)
}

func handlePlot(cfg *config.SplitConfig, args []string) {
	if len(args) < 1 || len(args) > 2 {
		log.Fatal("plot requires an activity id and an optional output path")
	}
	database := openDB(cfg)
	defer database.Close()

	res, err := newService(database).ComputeSplits(context.Background(), args[0], splitOptions(cfg))
	if err != nil {
		log.Fatalf("Failed to compute splits (%s): %v", workout.Classify(err), err)
	}

	out := security.SanitizeFilename(res.Activity.Name) + "-splits.png"
	if len(args) == 2 {
		out = args[1]
	}
	if err := security.ValidateExportPath(out); err != nil {
		log.Fatalf("Refusing to write plot: %v", err)
	}
	if err := report.SavePacePlot(fsutil.OSFileSystem{}, res.Splits, cfg.GetSplitUnit(), out); err != nil {
		log.Fatalf("Failed to save plot: %v", err)
	}
	log.Printf("wrote %s", out)
}

func handleDelete(cfg *config.SplitConfig, args []string) {
	if len(args) != 1 {
		log.Fatal("delete requires exactly one activity id")
	}
	database := openDB(cfg)
	defer database.Close()

	if err := database.DeleteActivity(context.Background(), args[0]); err != nil {
		if errors.Is(err, workout.ErrActivityNotFound) {
			log.Fatalf("No such activity: %s", args[0])
		}
		log.Fatalf("Failed to delete activity: %v", err)
	}
}

func handleServe(cfg *config.SplitConfig, args []string) {
	if len(args) != 0 {
		log.Fatalf("serve takes no arguments, got %v", args)
	}
	database := openDB(cfg)
	defer database.Close()

	svc := newService(database)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	backfiller := workout.NewBackfiller(svc, database, splitOptions(cfg), cfg.GetBatchWorkers())
	backfiller.Interval = cfg.GetBackfillInterval()
	if backfiller.Interval > 0 {
		backfiller.Start(ctx)
		defer backfiller.Stop()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only over loopback or Tailscale)
		database.AttachAdminRoutes(mux)
		mux.Handle("/api/", api.NewServer(svc, database, cfg).ServeMux())

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
