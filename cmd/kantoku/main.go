package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/kantoku-app/kantoku/pkg/api"
	"github.com/kantoku-app/kantoku/pkg/dashboard"
	"github.com/kantoku-app/kantoku/pkg/db"
	"github.com/kantoku-app/kantoku/pkg/reading"
	"github.com/kantoku-app/kantoku/pkg/resource"
	"github.com/kantoku-app/kantoku/pkg/storage"
	"github.com/kantoku-app/kantoku/pkg/submission"
	"github.com/kantoku-app/kantoku/pkg/task"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	dbFlag := flag.String("db", "kantoku.db", "Path to SQLite database")
	userFlag := flag.String("user", "", "User ID (UUID)")
	apiFlag := flag.String("api", "http://localhost:5678", "Workflow engine base URL")
	storageFlag := flag.String("storage", "", "Object store base URL")
	bucketFlag := flag.String("bucket", "submissions", "Object store bucket")
	keyFlag := flag.String("api-key", "", "Object store API key")
	syncFlag := flag.Bool("sync", false, "Generate today's tasks if needed and list what is due")
	statsFlag := flag.Bool("stats", false, "Print progress summary")
	skipFlag := flag.String("skip", "", "Task ID to skip")
	submitFlag := flag.String("submit-text", "", "Submit a text answer for -task and wait for the grade")
	taskFlag := flag.String("task", "", "Task ID for -submit-text")
	previewFlag := flag.String("preview", "", "URL to preview as an external resource")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *previewFlag != "" {
		preview(ctx, *previewFlag)
		return
	}

	conn, err := sql.Open("sqlite3", *dbFlag)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	if err := db.InitDB(conn); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatalf("Please provide a valid -user UUID: %v", err)
	}

	store := db.NewStore(conn)
	client := api.NewClient(*apiFlag)

	switch {
	case *syncFlag:
		svc := newDashboard(store, client)
		tasks, err := svc.SyncToday(ctx, userID)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		fmt.Printf("%d tasks due:\n", len(tasks))
		for _, t := range tasks {
			fmt.Printf("  %s  %-18s %s  %s\n", t.ID, t.Type, t.DueDate.Format("2006-01-02"), describe(t.Content))
		}

	case *statsFlag:
		svc := newDashboard(store, client)
		st, err := svc.Stats(ctx, userID)
		if err != nil {
			log.Fatalf("Stats failed: %v", err)
		}
		fmt.Printf("Due: %d  Passed: %d/%d\n", st.DueTasks, st.PassedTasks, st.TotalTasks)
		fmt.Printf("Daily goal: %d min  Streak: %d days  Skips left: %d\n",
			st.DailyGoalMinutes, st.StreakDays, st.SkipRemaining)

	case *skipFlag != "":
		taskID, err := uuid.Parse(*skipFlag)
		if err != nil {
			log.Fatalf("Invalid -skip task ID: %v", err)
		}
		svc := newDashboard(store, client)
		if err := svc.SkipTask(ctx, userID, taskID); err != nil {
			log.Fatalf("Skip failed: %v", err)
		}
		fmt.Println("Task skipped.")

	case *submitFlag != "":
		taskID, err := uuid.Parse(*taskFlag)
		if err != nil {
			log.Fatalf("Please provide a valid -task UUID: %v", err)
		}
		submitText(ctx, store, client, *storageFlag, *bucketFlag, *keyFlag, userID, taskID, *submitFlag)

	default:
		log.Fatal("Please provide one of -sync, -stats, -skip, -submit-text or -preview")
	}
}

func newDashboard(store *db.Store, client *api.Client) *dashboard.Service {
	analyzer, err := reading.NewAnalyzer()
	if err != nil {
		log.Printf("Warning: analyzer unavailable, readings will not be filled: %v", err)
	}
	svc := dashboard.New(store, client, analyzer)
	svc.Logger = log.Default()
	return svc
}

func submitText(ctx context.Context, store *db.Store, client *api.Client, storageURL, bucket, key string, userID, taskID uuid.UUID, text string) {
	blobs := storage.NewClient(storageURL, bucket, key)
	orch := submission.New(blobs, store, client)
	orch.Logger = log.Default()

	sub, err := orch.Submit(ctx, submission.Request{
		UserID: userID,
		TaskID: taskID,
		Type:   submission.TypeText,
		Data:   []byte(text),
	})
	if err != nil {
		log.Fatalf("Submit failed: %v", err)
	}
	fmt.Printf("Submitted %s, waiting for review...\n", sub.ID)

	select {
	case r := <-orch.Results():
		if r.Passed {
			fmt.Println("Passed!")
		} else {
			fmt.Println("Not passed.")
		}
		if r.Feedback != nil {
			fmt.Printf("Feedback: %s\n", r.Feedback.Overall)
		}
		if r.Submission.Score != nil {
			fmt.Printf("Score: %d\n", *r.Submission.Score)
		}
	case <-ctx.Done():
		orch.Cancel()
		fmt.Println("Cancelled.")
	}
}

func preview(ctx context.Context, url string) {
	p, err := resource.NewFetcher().Fetch(ctx, url)
	if err != nil {
		log.Fatalf("Preview failed: %v", err)
	}
	fmt.Printf("Title: %s\n", p.Title)
	if p.SiteName != "" {
		fmt.Printf("Site: %s\n", p.SiteName)
	}
	fmt.Printf("Excerpt: %s\n", p.Excerpt)
}

func describe(c task.Content) string {
	switch v := c.(type) {
	case task.KanaLearn:
		return fmt.Sprintf("%d %s characters", len(v.KanaList), v.KanaType)
	case task.KanaReview:
		return fmt.Sprintf("review %d %s characters", len(v.ReviewKana), v.KanaType)
	case task.Vocabulary:
		return fmt.Sprintf("%d words", len(v.Words))
	case task.ExternalResource:
		return fmt.Sprintf("%s: %s", v.ResourceType, v.Title)
	}
	return ""
}
