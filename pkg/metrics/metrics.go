/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes the queue subsystem's Prometheus gauges and
// counters, and the HTTP handler that serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gate_queue_length",
		Help: "Current number of players waiting in a backend's queue.",
	}, []string{"server"})

	QueuePaused = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gate_queue_paused",
		Help: "1 if the server's queue is paused, 0 otherwise.",
	}, []string{"server"})

	ServerOnline = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gate_queue_server_online",
		Help: "1 if the backend is ONLINE, 0 otherwise (OFFLINE or WAITING).",
	}, []string{"server"})

	SendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_queue_sends_total",
		Help: "Total number of players successfully sent to a backend.",
	}, []string{"server"})

	SendRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_queue_send_retries_total",
		Help: "Total number of failed connection attempts that were retried.",
	}, []string{"server"})

	SendTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_queue_send_timeouts_total",
		Help: "Total number of players dropped after exhausting max_send_retries.",
	}, []string{"server"})

	MasterElections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_queue_master_elections_total",
		Help: "Total number of times this proxy computed itself as the send-tick master.",
	})
)

func init() {
	prometheus.MustRegister(
		QueueLength, QueuePaused, ServerOnline,
		SendsTotal, SendRetriesTotal, SendTimeoutsTotal,
		MasterElections,
	)
}

// Handler serves the collected metrics in the Prometheus exposition
// format, mounted at /metrics on the admin HTTP surface.
func Handler() http.Handler {
	return promhttp.Handler()
}
