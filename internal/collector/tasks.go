package collector

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/mohammad-safakhou/daybrief/internal/auth"
)

const tasksMaxLists = 5

// TaskItem is one incomplete task due today.
type TaskItem struct {
	List  string `json:"list"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// TasksCollector reads incomplete tasks due today across up to five lists.
type TasksCollector struct {
	broker  *auth.Broker
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
	opts    []option.ClientOption
}

func NewTasksCollector(broker *auth.Broker, timeout time.Duration, logger *log.Logger, opts ...option.ClientOption) *TasksCollector {
	return &TasksCollector{broker: broker, timeout: timeout, logger: logger, now: time.Now, opts: opts}
}

func (c *TasksCollector) Name() string { return NameTasks }

func (c *TasksCollector) Fetch(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := c.broker.Acquire(ctx)
	if err != nil {
		return Failuref(NameTasks, "auth: %v", err)
	}

	svc, err := tasks.NewService(ctx, c.clientOptions(tok)...)
	if err != nil {
		return Failuref(NameTasks, "creating tasks service: %v", err)
	}

	lists, err := svc.Tasklists.List().MaxResults(tasksMaxLists).Context(ctx).Do()
	if err != nil {
		return Failuref(NameTasks, "listing task lists: %v", err)
	}

	// The due field carries a date, not a time of day: a string prefix
	// match on today's ISO date is the documented comparison.
	today := c.now().Format("2006-01-02")

	var due []TaskItem
	for _, list := range lists.Items {
		items, err := svc.Tasks.List(list.Id).ShowCompleted(false).Context(ctx).Do()
		if err != nil {
			return Failuref(NameTasks, "listing tasks in %q: %v", list.Title, err)
		}
		for _, t := range items.Items {
			if t.Due == "" || !strings.HasPrefix(t.Due, today) {
				continue
			}
			due = append(due, TaskItem{List: list.Title, Title: t.Title, Notes: t.Notes})
		}
	}

	if len(due) == 0 {
		return Empty(NameTasks, "no tasks due today")
	}
	c.logger.Printf("[TASKS] %d tasks due today", len(due))
	return Success(NameTasks, due)
}

func (c *TasksCollector) clientOptions(tok *oauth2.Token) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(tok))}
	return append(opts, c.opts...)
}
