package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mpkibench/internal/ledger"
)

// gauges hold the metrics of the most recently completed case, labeled by
// case id and node so a scraper can follow a sweep as it progresses
var (
	promIPC = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpkibench_ipc",
			Help: "Instructions retired per cycle for the last completed case",
		},
		[]string{"case", "node"},
	)
	promL1MPKI = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpkibench_l1_mpki",
			Help: "L1 data cache misses per thousand instructions for the last completed case",
		},
		[]string{"case", "node"},
	)
	promL2MPKI = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpkibench_l2_mpki",
			Help: "L2 cache misses per thousand instructions for the last completed case",
		},
		[]string{"case", "node"},
	)
	promDRAMFillPKI = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpkibench_dram_fill_pki",
			Help: "DRAM fills per thousand instructions for the last completed case",
		},
		[]string{"case", "node"},
	)
)

var promEnabled bool

func startPromServer(listenAddr string) {
	prometheus.MustRegister(promIPC, promL1MPKI, promL2MPKI, promDRAMFillPKI)
	promEnabled = true
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
}

// publishRecord updates the gauges from a completed record. Undefined metric
// values are left unset rather than published as zero.
func publishRecord(record ledger.Record) {
	if !promEnabled {
		return
	}
	labels := prometheus.Labels{"case": record.CaseID, "node": record.Node}
	if record.Metrics.IPC != nil {
		promIPC.With(labels).Set(*record.Metrics.IPC)
	}
	promL1MPKI.With(labels).Set(record.Metrics.L1MPKI)
	promL2MPKI.With(labels).Set(record.Metrics.L2MPKI)
	promDRAMFillPKI.With(labels).Set(record.Metrics.DRAMFillPKI)
}
