package feed

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduler drives the periodic refresh tasks. Each task fires on its own
// fixed interval measured from task start, not from previous completion;
// overlapping runs are accepted, not fenced.
type scheduler struct {
	cron *cron.Cron
}

func newScheduler() *scheduler {
	return &scheduler{cron: cron.New()}
}

// every registers fn to run on a fixed interval. Safe to call while running,
// so fast-path tasks can be armed after the first successful bulk fetch.
// cron's @every rounds intervals below one second up to one second.
func (s *scheduler) every(interval time.Duration, fn func()) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), fn)
	return err
}

func (s *scheduler) start() {
	s.cron.Start()
}

func (s *scheduler) stop() {
	s.cron.Stop()
}
