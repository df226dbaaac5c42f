package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pruner deletes audit rows older than Retention on a cron schedule.
type Pruner struct {
	DB        Execer
	Retention time.Duration
	Log       logrus.FieldLogger
	Timeout   time.Duration

	now func() time.Time
}

// Prune deletes expired rows once and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	cutoff := now().Add(-p.Retention)
	tag, err := p.DB.Exec(ctx, `DELETE FROM auth_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Schedule registers the pruner on c with a cron schedule such as "@hourly".
func (p *Pruner) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := p.Prune(ctx)
		if err != nil {
			p.Log.WithError(err).Warn("audit prune failed")
			return
		}
		p.Log.WithField("deleted", n).Debug("audit prune")
	})
}
