package elastic_client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/util"
)

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

const defaultFlushInterval = 15 * time.Second
const defaultMaxRetries = 5

// Connect sets up the global client and bulk indexer. When required is false a
// missing address leaves the client unset and documents are dropped silently.
func Connect(required bool) error {
	env := util.GetEnvironmentVariables()
	address := env["RAILTRACKER_ELASTICSEARCH_ADDRESS"]

	if address == "" {
		if required {
			return errors.New("RAILTRACKER_ELASTICSEARCH_ADDRESS is not set")
		}

		log.Info().Msg("Skipping Elasticsearch setup")
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if env["RAILTRACKER_ELASTICSEARCH_INSECURE"] == "YES" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retries := backoff.NewExponentialBackOff()

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{address},
		Username:      env["RAILTRACKER_ELASTICSEARCH_USERNAME"],
		Password:      env["RAILTRACKER_ELASTICSEARCH_PASSWORD"],
		Transport:     transport,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		RetryBackoff: func(attempt int) time.Duration {
			if attempt == 1 {
				retries.Reset()
			}
			return retries.NextBackOff()
		},
		MaxRetries: util.EnvInt(env, "RAILTRACKER_ELASTICSEARCH_MAX_RETRIES", defaultMaxRetries),
	})
	if err != nil {
		return err
	}

	if _, err := client.Info(); err != nil {
		return fmt.Errorf("elasticsearch %s: %w", address, err)
	}

	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        client,
		FlushInterval: util.EnvDuration(env, "RAILTRACKER_ELASTICSEARCH_FLUSH_INTERVAL", defaultFlushInterval),
	})
	if err != nil {
		return err
	}

	Client = client
	bulkIndexer = indexer

	log.Info().Str("address", address).Msg("Elasticsearch client ready")

	return nil
}

func IndexRequest(indexName string, document io.ReadSeeker) {
	if Client == nil {
		return
	}

	err := bulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Index:  indexName,
			Action: "index",
			Body:   document,
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Error().Err(err).Str("indexName", indexName).Msg("Failed to index document")
				} else {
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index document")
				}
			},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("indexName", indexName).Msg("Failed to queue document")
	}
}

func WaitUntilQueueEmpty() {
	if bulkIndexer == nil {
		return
	}

	if err := bulkIndexer.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush Elasticsearch bulk indexer")
	}
}
