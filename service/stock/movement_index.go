package stock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mitchellh/mapstructure"
	"gorm.io/datatypes"

	stockEntity "bookable.GO/model/entity/stock"
)

// MovementIndexer mirrors ledger writes into an Elasticsearch index for the
// movement search API. Indexing is best-effort: the ledger is the source of
// truth and a failed index write only logs.
type MovementIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewMovementIndexer reads ELASTICSEARCH_HOST / ELASTICSEARCH_INDEX_PREFIX
// and returns an indexer. With no reachable cluster the client stays nil and
// every method is a no-op or reports "not configured".
func NewMovementIndexer() *MovementIndexer {
	host := os.Getenv("ELASTICSEARCH_HOST")
	if host == "" {
		return &MovementIndexer{index: "bookable_stock_movement"}
	}
	prefix := os.Getenv("ELASTICSEARCH_INDEX_PREFIX")
	if prefix == "" {
		prefix = "bookable"
	}
	index := prefix + "_stock_movement"

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{host}})
	if err != nil {
		return &MovementIndexer{index: index}
	}
	return &MovementIndexer{client: client, index: index}
}

// Enabled reports whether an ES cluster is configured.
func (s *MovementIndexer) Enabled() bool {
	return s.client != nil
}

// Index writes one movement document keyed by movement id.
func (s *MovementIndexer) Index(m *stockEntity.StockMovement) {
	if s.client == nil {
		return
	}
	body, err := json.Marshal(m)
	if err != nil {
		log.Printf("stock: index movement %s: %v", m.MovementID, err)
		return
	}
	res, err := s.client.Index(s.index, bytes.NewReader(body),
		s.client.Index.WithDocumentID(m.MovementID),
	)
	if err != nil {
		log.Printf("stock: index movement %s: %v", m.MovementID, err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("stock: index movement %s: %s", m.MovementID, res.String())
	}
}

// MovementQuery filters a movement search.
type MovementQuery struct {
	ItemID        *uint
	Kind          string
	ReferenceKind string
	ReferenceID   string
	Size          int
}

// SearchMovements queries the movement index, newest first.
func (s *MovementIndexer) SearchMovements(ctx context.Context, q MovementQuery) ([]stockEntity.StockMovement, error) {
	if s.client == nil {
		return nil, fmt.Errorf("elasticsearch not configured")
	}

	var filters []map[string]interface{}
	if q.ItemID != nil {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"item_id": *q.ItemID}})
	}
	if q.Kind != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"kind.keyword": q.Kind}})
	}
	if q.ReferenceKind != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"reference_kind.keyword": q.ReferenceKind}})
	}
	if q.ReferenceID != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"reference_id.keyword": q.ReferenceID}})
	}

	size := q.Size
	if size <= 0 {
		size = 50
	}
	body := map[string]interface{}{
		"size": size,
		"sort": []map[string]interface{}{{"created_at": map[string]interface{}{"order": "desc"}}},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
	}
	bodyBytes, _ := json.Marshal(body)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var esResp struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, err
	}

	out := make([]stockEntity.StockMovement, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		var m stockEntity.StockMovement
		if err := decodeMovement(hit.Source, &m); err != nil {
			log.Printf("stock: decode movement hit: %v", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// decodeMovement maps an ES _source document onto the entity, tolerating the
// JSON number/string looseness of indexed documents.
func decodeMovement(src map[string]interface{}, out *stockEntity.StockMovement) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToTimeHook(), rawJSONHook()),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

func stringToTimeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		return time.Parse(time.RFC3339, data.(string))
	}
}

// rawJSONHook re-marshals object fields targeted at datatypes.JSON columns.
func rawJSONHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(datatypes.JSON{}) {
			return data, nil
		}
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(b), nil
	}
}
