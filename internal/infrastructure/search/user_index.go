package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
)

const (
	DefaultSize = 10
	MaxSize     = 50

	requestTimeout = 3 * time.Second
)

// ClampSize maps a requested result size onto 1..MaxSize, with DefaultSize
// standing in for anything non-positive.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// UserIndex keeps one Elasticsearch document per user, keyed by user id.
type UserIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{es: es, index: index}
}

type userDocument struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	BirthDate string  `json:"birth_date"`
	Phone     *string `json:"phone"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

func newDocument(u *entity.User) userDocument {
	doc := userDocument{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		BirthDate: u.BirthDate.Format("2006-01-02"),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if u.Phone != "" {
		phone := u.Phone
		doc.Phone = &phone
	}
	if u.UpdatedAt != nil {
		ts := u.UpdatedAt.UTC().Format(time.RFC3339Nano)
		doc.UpdatedAt = &ts
	}
	return doc
}

// Index writes the current state of u, replacing any earlier document.
func (x *UserIndex) Index(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(newDocument(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: strconv.FormatInt(u.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index user %d: %s", u.ID, res.Status())
	}
	return nil
}

// Search runs a multi_match over email (boosted) and name and returns the
// matching user ids in score order.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]int64, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": ClampSize(size),
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
