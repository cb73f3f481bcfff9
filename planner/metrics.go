package planner

import "github.com/VictoriaMetrics/metrics"

var (
	plansTotal     = metrics.NewCounter("compaction_plans_total")
	plansEmpty     = metrics.NewCounter("compaction_plans_empty_total")
	plansDeferred  = metrics.NewCounter("compaction_plans_deferred_total")
	userSerialized = metrics.NewCounter("compaction_user_serialized_total")
)

func ResetMetrics() {
	plansTotal.Set(0)
	plansEmpty.Set(0)
	plansDeferred.Set(0)
	userSerialized.Set(0)
}
