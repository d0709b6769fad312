/*
@Description: atomic counters exposed by Encoder/Decoder, and their Prometheus export
@Language: Go 1.23.4
*/

package fecgo

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// EncoderStats is a point-in-time snapshot of an Encoder's counters
// (spec §6 "counters"), adapted from the teacher's Snmp (snmp.go):
// snapshot returns an independent copy rather than a live view.
// NbAdmitted and NbGeneratedRepairs are loaded with sync/atomic;
// WindowSize and EffectiveRate are plain reads of encoder state that
// are not synchronized with the I/O thread.
type EncoderStats struct {
	NbAdmitted         uint64
	NbGeneratedRepairs uint64
	WindowSize         uint64
	EffectiveRate      uint64
}

func (e *encoderCore) snapshot() EncoderStats {
	return EncoderStats{
		NbAdmitted:         atomic.LoadUint64(&e.nbAdmitted),
		NbGeneratedRepairs: atomic.LoadUint64(&e.nbGeneratedRepairs),
		WindowSize:         uint64(e.windowSize()),
		EffectiveRate:      uint64(e.effectiveRate),
	}
}

// DecoderStats is a point-in-time snapshot of a Decoder's counters.
type DecoderStats struct {
	NbReceivedSources     uint64
	NbReceivedRepairs     uint64
	NbDecoded             uint64
	NbUselessRepairs      uint64
	NbFailedFullDecodings uint64
	NbSentAcks            uint64
	NbMissingSources      uint64
}

func (d *decoderCore) snapshot() DecoderStats {
	return DecoderStats{
		NbReceivedSources:     atomic.LoadUint64(&d.nbReceivedSources),
		NbReceivedRepairs:     atomic.LoadUint64(&d.nbReceivedRepairs),
		NbDecoded:             atomic.LoadUint64(&d.nbDecoded),
		NbUselessRepairs:      atomic.LoadUint64(&d.nbUselessRepairs),
		NbFailedFullDecodings: atomic.LoadUint64(&d.nbFailedFullDecodings),
		NbSentAcks:            atomic.LoadUint64(&d.nbSentAcks),
		// missing's length isn't atomic-protected; Stats() is a
		// best-effort snapshot for reporting, not a point the codec's
		// single-threaded invariants depend on (spec §5).
		NbMissingSources: uint64(d.missing.Len()),
	}
}

// encoderCollector adapts an Encoder's counters to prometheus.Collector,
// the way the teacher's Snmp is adapted for CLI reporting (ToSlice) but
// here for scrape-based export instead.
type encoderCollector struct {
	enc *Encoder

	admitted   *prometheus.Desc
	repairs    *prometheus.Desc
	window     *prometheus.Desc
	effRate    *prometheus.Desc
}

// NewEncoderCollector returns a prometheus.Collector exporting e's
// counters under the fecgo_encoder_* metric names.
func NewEncoderCollector(e *Encoder) prometheus.Collector {
	return &encoderCollector{
		enc:      e,
		admitted: prometheus.NewDesc("fecgo_encoder_admitted_total", "Total sources admitted.", nil, nil),
		repairs:  prometheus.NewDesc("fecgo_encoder_repairs_generated_total", "Total repairs generated.", nil, nil),
		window:   prometheus.NewDesc("fecgo_encoder_window_size", "Current window occupancy.", nil, nil),
		effRate:  prometheus.NewDesc("fecgo_encoder_effective_rate", "Current effective (possibly adapted) rate.", nil, nil),
	}
}

func (c *encoderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.admitted
	ch <- c.repairs
	ch <- c.window
	ch <- c.effRate
}

func (c *encoderCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.enc.Stats()
	ch <- prometheus.MustNewConstMetric(c.admitted, prometheus.CounterValue, float64(s.NbAdmitted))
	ch <- prometheus.MustNewConstMetric(c.repairs, prometheus.CounterValue, float64(s.NbGeneratedRepairs))
	ch <- prometheus.MustNewConstMetric(c.window, prometheus.GaugeValue, float64(s.WindowSize))
	ch <- prometheus.MustNewConstMetric(c.effRate, prometheus.GaugeValue, float64(s.EffectiveRate))
}

// decoderCollector adapts a Decoder's counters to prometheus.Collector.
type decoderCollector struct {
	dec *Decoder

	receivedSources *prometheus.Desc
	receivedRepairs *prometheus.Desc
	decoded         *prometheus.Desc
	useless         *prometheus.Desc
	failedFull      *prometheus.Desc
	sentAcks        *prometheus.Desc
	missing         *prometheus.Desc
}

// NewDecoderCollector returns a prometheus.Collector exporting d's
// counters under the fecgo_decoder_* metric names.
func NewDecoderCollector(d *Decoder) prometheus.Collector {
	return &decoderCollector{
		dec:             d,
		receivedSources: prometheus.NewDesc("fecgo_decoder_received_sources_total", "Total sources received directly.", nil, nil),
		receivedRepairs: prometheus.NewDesc("fecgo_decoder_received_repairs_total", "Total repairs received.", nil, nil),
		decoded:         prometheus.NewDesc("fecgo_decoder_decoded_total", "Total sources reconstructed from repairs.", nil, nil),
		useless:         prometheus.NewDesc("fecgo_decoder_useless_repairs_total", "Total repairs dropped with no remaining references.", nil, nil),
		failedFull:      prometheus.NewDesc("fecgo_decoder_failed_full_decodings_total", "Total rank-deficient full-decode attempts.", nil, nil),
		sentAcks:        prometheus.NewDesc("fecgo_decoder_sent_acks_total", "Total acks emitted.", nil, nil),
		missing:         prometheus.NewDesc("fecgo_decoder_missing_sources", "Current count of known-missing source ids.", nil, nil),
	}
}

func (c *decoderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.receivedSources
	ch <- c.receivedRepairs
	ch <- c.decoded
	ch <- c.useless
	ch <- c.failedFull
	ch <- c.sentAcks
	ch <- c.missing
}

func (c *decoderCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.dec.Stats()
	ch <- prometheus.MustNewConstMetric(c.receivedSources, prometheus.CounterValue, float64(s.NbReceivedSources))
	ch <- prometheus.MustNewConstMetric(c.receivedRepairs, prometheus.CounterValue, float64(s.NbReceivedRepairs))
	ch <- prometheus.MustNewConstMetric(c.decoded, prometheus.CounterValue, float64(s.NbDecoded))
	ch <- prometheus.MustNewConstMetric(c.useless, prometheus.CounterValue, float64(s.NbUselessRepairs))
	ch <- prometheus.MustNewConstMetric(c.failedFull, prometheus.CounterValue, float64(s.NbFailedFullDecodings))
	ch <- prometheus.MustNewConstMetric(c.sentAcks, prometheus.CounterValue, float64(s.NbSentAcks))
	ch <- prometheus.MustNewConstMetric(c.missing, prometheus.GaugeValue, float64(s.NbMissingSources))
}
