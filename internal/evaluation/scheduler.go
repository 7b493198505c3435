package evaluation

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/evalops/botvet/internal/persona"
)

const (
	defaultBatchSize   = 6
	defaultRunsPerTask = 2
)

// TaskRunner executes one evaluation task end to end, including all of its
// internal retries. A returned error means the task is exhausted.
type TaskRunner interface {
	RunTask(ctx context.Context, task Task) error
}

// Result is the settled outcome of one task.
type Result struct {
	Task Task
	Err  error
}

// SkipEntry excludes one (persona, skill) pair from the task matrix.
type SkipEntry struct {
	Persona string
	SkillID string
}

// Scheduler fans the task matrix out in fixed-size batches. A batch runs
// fully concurrently; the next batch starts only once every task in the
// current one has settled, success or failure.
type Scheduler struct {
	runner TaskRunner
	log    *slog.Logger

	BatchSize   int
	RunsPerTask int
}

func NewScheduler(runner TaskRunner, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		runner:      runner,
		log:         log,
		BatchSize:   defaultBatchSize,
		RunsPerTask: defaultRunsPerTask,
	}
}

// BuildTasks enumerates the full matrix: RunsPerTask independent runs for
// every (skill, persona) pair not present in the skip list. Repeat runs
// sample variance; each provisions its own assessment.
func (s *Scheduler) BuildTasks(skillIDs []string, personas []persona.Builder, skip []SkipEntry) []Task {
	skipped := make(map[SkipEntry]struct{}, len(skip))
	for _, entry := range skip {
		skipped[entry] = struct{}{}
	}

	var tasks []Task
	for _, skillID := range skillIDs {
		for _, p := range personas {
			if _, ok := skipped[SkipEntry{Persona: p.PersonaName(), SkillID: skillID}]; ok {
				s.log.Debug("skipping excluded pair", "persona", p.PersonaName(), "skill", skillID)
				continue
			}
			for range s.RunsPerTask {
				tasks = append(tasks, Task{SkillID: skillID, Persona: p})
			}
		}
	}
	return tasks
}

// Run executes all tasks and returns one settled result per task, in task
// order. A failing task is recorded and never cancels its siblings or the
// remaining batches.
func (s *Scheduler) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	for start := 0; start < len(tasks); start += s.BatchSize {
		end := min(start+s.BatchSize, len(tasks))
		s.log.Info("starting batch", "from", start, "to", end-1, "total", len(tasks))

		var group errgroup.Group
		for i := start; i < end; i++ {
			group.Go(func() error {
				err := s.runner.RunTask(ctx, tasks[i])
				if err != nil {
					s.log.Error("all attempts failed",
						"persona", tasks[i].Persona.PersonaName(),
						"skill", tasks[i].SkillID,
						"error", err)
				}
				results[i] = Result{Task: tasks[i], Err: err}
				return nil
			})
		}
		// group.Go never returns an error; failures live in results
		_ = group.Wait()
	}

	return results
}
