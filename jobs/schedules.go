package jobs

import "context"

// Schedules are standard five-field cron expressions. An empty schedule
// disables the job.
type Schedules struct {
	Heartbeat string `yaml:"heartbeat"`
	Restock   string `yaml:"restock"`
	Report    string `yaml:"report"`
	Reminder  string `yaml:"reminder"`
}

func DefaultSchedules() Schedules {
	return Schedules{
		Heartbeat: "*/5 * * * *",
		Restock:   "0 */12 * * *",
		Report:    "0 6 * * 1",
		Reminder:  "0 9 * * *",
	}
}

func (s Schedules) of(name string) string {
	switch name {
	case HeartbeatJob:
		return s.Heartbeat
	case RestockJob:
		return s.Restock
	case ReportJob:
		return s.Report
	case ReminderJob:
		return s.Reminder
	}
	return ""
}

func (r *Runner) tasks() []Job {
	return []Job{
		{Name: HeartbeatJob, Run: r.Heartbeat},
		{Name: RestockJob, Run: r.Restock},
		{Name: ReportJob, Run: func(ctx context.Context) error {
			_, err := r.Report(ctx)
			return err
		}},
		{Name: ReminderJob, Run: func(ctx context.Context) error {
			_, err := r.Remind(ctx)
			return err
		}},
	}
}

// Jobs binds the runner's tasks to s, leaving out disabled ones.
func (r *Runner) Jobs(s Schedules) []Job {
	var out []Job
	for _, j := range r.tasks() {
		if j.Schedule = s.of(j.Name); j.Schedule != "" {
			out = append(out, j)
		}
	}
	return out
}

// Job returns the named task without a schedule, for one-off runs.
func (r *Runner) Job(name string) (Job, bool) {
	for _, j := range r.tasks() {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}
