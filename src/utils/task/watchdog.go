package task

import (
	"time"

	"github.com/ocean-market/marketd/src/utils/config"
)

// Runs a task created by the factory and restarts it whenever isOK reports failure.
// Used to recover subtrees whose internal retries got stuck.
type Watchdog struct {
	*Task

	taskFactory func() *Task
	isOK        func() bool

	watched *Task
}

func NewWatchdog(config *config.Config) (self *Watchdog) {
	self = new(Watchdog)
	self.Task = NewTask(config, "watchdog").
		WithOnBeforeStart(self.startWatched).
		WithOnStop(func() {
			if self.watched != nil {
				self.watched.StopWait()
			}
		})
	return
}

func (self *Watchdog) WithTask(f func() *Task) *Watchdog {
	self.taskFactory = f
	return self
}

func (self *Watchdog) WithIsOK(interval time.Duration, isOK func() bool) *Watchdog {
	self.isOK = isOK
	self.Task = self.Task.WithPeriodicSubtaskFunc(interval, self.check)
	return self
}

func (self *Watchdog) startWatched() (err error) {
	self.watched = self.taskFactory()
	return self.watched.Start()
}

func (self *Watchdog) check() (err error) {
	if self.isOK() {
		return nil
	}

	self.Log.Warn("Watched task is not OK, restarting")

	self.watched.StopWait()

	err = self.startWatched()
	if err != nil {
		self.Log.WithError(err).Error("Failed to restart watched task")
	}
	return
}
