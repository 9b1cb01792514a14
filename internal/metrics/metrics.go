// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Registry holds the blockcells metrics. It is separate from the default
// registry so that embedding applications decide whether to expose it.
var Registry = prometheus.NewRegistry()

// Merkle proof and update metrics
var (
	ProofsCreated = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: "blockcells",
		Name:      "proofs_created_total",
		Help:      "Number of Merkle proofs created",
	})
	ProofChecks = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockcells",
		Name:      "proof_checks_total",
		Help:      "Number of Merkle proofs loaded or checked, by result",
	}, []string{"result"})
	UpdatesCreated = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockcells",
		Name:      "updates_created_total",
		Help:      "Number of Merkle updates created, by mode",
	}, []string{"mode"})
	UpdatesApplied = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockcells",
		Name:      "updates_applied_total",
		Help:      "Number of Merkle updates applied, by result",
	}, []string{"result"})
)

// Result returns the result label for err.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// Write writes every metric in the registry to w in the text exposition
// format.
func Write(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		_, err = expfmt.MetricFamilyToText(w, mf)
		if err != nil {
			return err
		}
	}
	return nil
}
