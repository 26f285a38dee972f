package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries operation log writes and retention sweeps.
	QueueAudit = "audit"
)

// OperatorRoles may inspect queue health.
var OperatorRoles = []string{"ADMIN", "PRINCIPAL"}

// Queues lists the served queues with their priority weights.
func Queues() map[string]int {
	return map[string]int{
		QueueAudit:   3,
		QueueDefault: 1,
	}
}
