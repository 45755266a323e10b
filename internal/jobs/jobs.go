// Package jobs runs the recurring maintenance sweeps: overdue invoice
// flagging and loyalty point expiry.
package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestifac/internal/services"
)

// Runner owns the cron scheduler. Both sweeps are idempotent so an
// overlapping or replayed run is harmless.
type Runner struct {
	cron    *cron.Cron
	log     *logrus.Logger
	docs    *services.DocumentService
	loyalty *services.LoyaltyService
}

func New(db *gorm.DB, log *logrus.Logger) *Runner {
	return &Runner{
		cron:    cron.New(),
		log:     log,
		docs:    services.NewDocumentService(db),
		loyalty: services.NewLoyaltyService(db),
	}
}

// Start schedules the sweeps. Both run shortly after midnight; the
// exact minute offsets keep them from competing for the same rows.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc("5 0 * * *", r.SweepOverdue); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc("15 0 * * *", r.SweepLoyalty); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("background jobs scheduled")
	return nil
}

// Stop waits for in-flight jobs before returning.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// SweepOverdue flags finalized invoices past their due date.
func (r *Runner) SweepOverdue() {
	n, err := r.docs.MarkOverdue(time.Now())
	if err != nil {
		r.log.WithError(err).Error("overdue sweep failed")
		return
	}
	if n > 0 {
		r.log.WithField("count", n).Info("invoices marked overdue")
	}
}

// SweepLoyalty expires loyalty points past their validity window.
func (r *Runner) SweepLoyalty() {
	n, err := r.loyalty.ExpireDue(time.Now())
	if err != nil {
		r.log.WithError(err).Error("loyalty expiry sweep failed")
		return
	}
	if n > 0 {
		r.log.WithField("count", n).Info("loyalty entries expired")
	}
}
