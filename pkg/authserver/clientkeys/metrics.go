// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package clientkeys

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	cacheValidator = "validator"
	cacheEncrypter = "encrypter"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

type metrics struct {
	requests *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trustengine",
				Subsystem: "client_key_cache",
				Name:      "requests_total",
				Help:      "Client key cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(m.requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m, nil
}

func (m *metrics) observe(cache, result string) {
	m.requests.WithLabelValues(cache, result).Inc()
}
