package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "adreward"

// CommissionPaid 已到账佣金笔数（按触发类型、层级）
var CommissionPaid = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commission",
	Name:      "paid_total",
	Help:      "Total commission credits applied, by trigger type and level.",
}, []string{"trigger_type", "level"})

// CommissionPaidAmount 已到账佣金金额
var CommissionPaidAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commission",
	Name:      "paid_amount_total",
	Help:      "Total commission amount credited, by trigger type.",
}, []string{"trigger_type"})

// CommissionFailed 分发失败并转入补发的佣金笔数
var CommissionFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commission",
	Name:      "failed_total",
	Help:      "Total commission levels that failed and were queued for reconciliation.",
}, []string{"trigger_type"})

// CommissionSkipped 未匹配档位而跳过的事件数
var CommissionSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commission",
	Name:      "skipped_total",
	Help:      "Total trigger events that paid no commission, by reason.",
}, []string{"reason"})

// CommissionReconciled 补发处理结果
var CommissionReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commission",
	Name:      "reconciled_total",
	Help:      "Total reconciliation attempts, by result.",
}, []string{"result"})

// KeyTransitions 激活码状态迁移次数
var KeyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "key",
	Name:      "transitions_total",
	Help:      "Total activation key lifecycle events, by event type.",
}, []string{"event"})

// ObserveCommissionPaid 记录一笔到账佣金
func ObserveCommissionPaid(triggerType, level string, amount decimal.Decimal) {
	CommissionPaid.WithLabelValues(triggerType, level).Inc()
	f, _ := amount.Float64()
	CommissionPaidAmount.WithLabelValues(triggerType).Add(f)
}

// Handler 暴露 Prometheus 指标
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
