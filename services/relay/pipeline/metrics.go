// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_turns_total",
		Help: "Completed chat turns (logged and appended to history)",
	})

	classifiedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_classified_errors_total",
		Help: "Downstream failures by classifier category",
	}, []string{"category"})

	tokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_tokens_consumed_total",
		Help: "Tokens reported by the completion backend",
	})

	logWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_log_write_failures_total",
		Help: "Chat log appends that failed (turn still delivered)",
	})

	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatrelay_completion_duration_seconds",
		Help:    "Time spent waiting on the completion backend",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)
