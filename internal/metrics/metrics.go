package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track import volume
var (
	RecordFilesImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_record_files_imported_total",
		Help: "Total number of record stream files imported",
	})

	TransactionsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_transactions_imported_total",
		Help: "Total number of transactions imported",
	})
)

// Performance metrics - Track parse and persistence latency
var (
	RecordFileParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "importer_record_file_parse_duration_seconds",
		Help:    "Time taken to parse and verify a single record file",
		Buckets: prometheus.DefBuckets,
	})

	DatabaseBatchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "importer_db_batch_insert_duration_seconds",
		Help:    "Time taken to execute batch INSERT operations",
		Buckets: prometheus.DefBuckets,
	})

	BatchInsertSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "importer_batch_insert_size",
		Help:    "Number of items in each batch INSERT operation",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
	})
)

// State metrics - Track current import position
var (
	LastConsensusEnd = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_last_consensus_end_ns",
		Help: "Consensus end timestamp of the last imported record file",
	})

	FileBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_file_backlog",
		Help: "Number of record files discovered but not yet imported",
	})
)

// Error metrics - Track failures by error class
var (
	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "importer_parse_errors_total",
			Help: "Total number of record file parse failures by error class",
		},
		[]string{"class"},
	)

	HashMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_hash_mismatches_total",
		Help: "Total number of previous-hash chain link mismatches",
	})
)

// Pipeline metrics - Track parallel processing pipeline
var (
	PipelineMode = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_pipeline_mode",
		Help: "Pipeline mode: 0=sequential, 1=parallel",
	})

	PipelineWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_pipeline_worker_count",
		Help: "Number of active pipeline workers",
	})

	PipelineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_pipeline_queue_depth",
		Help: "Number of record files waiting to be committed in order",
	})
)
