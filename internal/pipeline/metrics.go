package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	filesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "codeindexer_pipeline_files_processed_total",
		Help: "Files successfully indexed by the file pipeline.",
	})
	filesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "codeindexer_pipeline_files_failed_total",
		Help: "Files that exhausted retries while being indexed.",
	})
	chunksIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "codeindexer_pipeline_chunks_indexed_total",
		Help: "Chunks upserted into the vector store by the file pipeline.",
	})
)

func init() {
	prometheus.MustRegister(filesProcessed, filesFailed, chunksIndexed)
}
