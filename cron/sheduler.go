package cron

import (
	"log"

	"github.com/robfig/cron/v3"

	"bookable.GO/config"
)

// StartCron schedules the configured jobs plus everything registered via
// Register. The expired-claim sweep honors SWEEP_SCHEDULE from the app
// config.
func StartCron() *cron.Cron {
	c := cron.New()
	addJobs := func(jobMap map[string]config.CronJob) {
		for name, cronJob := range jobMap {
			jobFunc := cronJob.Job
			schedule := cronJob.Schedule
			if name == "releaseexpired" && config.AppConfig != nil && config.AppConfig.SweepSchedule != "" {
				schedule = config.AppConfig.SweepSchedule
			}
			_, err := c.AddFunc(schedule, func() { jobFunc() })
			if err != nil {
				log.Fatalf("Failed to register job %s: %v", name, err)
			}
		}
	}
	addJobs(config.CronJobs)
	for name, j := range Jobs() {
		run := j.Run
		sched := j.Schedule
		_, err := c.AddFunc(sched, func() { run() })
		if err != nil {
			log.Fatalf("Failed to register job %s: %v", name, err)
		}
	}
	c.Start()
	return c
}
