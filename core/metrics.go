package core

import "github.com/prometheus/client_golang/prometheus"

const prometheusNamespace = "ethcli"

var RPCRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_requests_total",
	Help:      "Number of JSON-RPC requests sent",
}, []string{"method"})

var RPCErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_errors_total",
	Help:      "Number of failed JSON-RPC requests",
}, []string{"method", "category"})

var SubmittedTxCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "submitted_transactions_total",
	Help:      "Number of submitted transactions",
}, []string{"path"})

func init() {
	prometheus.MustRegister(RPCRequestsCounter, RPCErrorsCounter, SubmittedTxCounter)
}
