package jobs

import (
	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"
)

// Config holds per-job schedules and log files. An empty schedule leaves the
// job out of the scheduler; it can still be run ad hoc.
type Config struct {
	Heartbeat HeartbeatConfig
	LowStock  LowStockConfig
	Reminders RemindersConfig
	Report    ReportConfig
}

type HeartbeatConfig struct {
	Schedule string `default:"*/5 * * * *" usage:"Heartbeat cron schedule"`
	LogFile  string `default:"/tmp/crm_heartbeat_log.txt" usage:"Heartbeat log file"`
}

type LowStockConfig struct {
	Schedule string `default:"0 */12 * * *" usage:"Low-stock restock cron schedule"`
	LogFile  string `default:"/tmp/low_stock_updates_log.txt" usage:"Low-stock restock log file"`
}

type RemindersConfig struct {
	Schedule string `default:"" usage:"Order reminder cron schedule (empty: ad hoc only)"`
	LogFile  string `default:"/tmp/order_reminders_log.txt" usage:"Order reminder log file"`
	LastDays int    `default:"7" usage:"Remind about orders placed within this many days"`
}

type ReportConfig struct {
	Schedule string `default:"0 6 * * 1" usage:"Revenue report cron schedule"`
	LogFile  string `default:"/tmp/crm_report_log.txt" usage:"Revenue report log file"`
}

// Validate checks every non-empty schedule parses as a standard cron expression.
func (c Config) Validate() error {
	schedules := map[string]string{
		NameHeartbeat: c.Heartbeat.Schedule,
		NameLowStock:  c.LowStock.Schedule,
		NameReminders: c.Reminders.Schedule,
		NameReport:    c.Report.Schedule,
	}
	for name, expr := range schedules {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return errors.Wrapf(err, "%s schedule %q", name, expr)
		}
	}
	if c.Reminders.LastDays <= 0 {
		return errors.Errorf("reminders lastDays must be positive, got %d", c.Reminders.LastDays)
	}
	return nil
}
