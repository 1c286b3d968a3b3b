// Package search keeps the Elasticsearch recipe index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// IndexRecipes is the recipe index name.
const IndexRecipes = "recipes"

// Client wraps the Elasticsearch client with Feedora's recipe operations.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to url. transport may be nil; the server passes an
// instrumented one so search calls show up in traces.
func NewClient(ctx context.Context, url string, transport http.RoundTripper) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()

	return &Client{es: es}, nil
}

// InitializeIndices creates the recipe index if it does not exist.
func (c *Client) InitializeIndices(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{IndexRecipes}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(recipeMapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err = c.es.Indices.Create(IndexRecipes,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	return responseError(res, "creating index")
}

// IndexRecipe upserts one recipe document.
func (c *Client) IndexRecipe(ctx context.Context, doc RecipeDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe document: %w", err)
	}

	res, err := c.es.Index(IndexRecipes, bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.ID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index recipe: %w", err)
	}
	defer res.Body.Close()
	return responseError(res, "indexing recipe")
}

// DeleteRecipe removes a recipe document. A missing document is not an error.
func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	res, err := c.es.Delete(IndexRecipes, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "deleting recipe")
}

// SearchRecipes returns matching recipe ids by relevance and the total hit
// count.
func (c *Client) SearchRecipes(ctx context.Context, query string, offset, limit int) ([]string, int64, error) {
	body, err := json.Marshal(recipeQuery(query))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexRecipes),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithFrom(offset),
		c.es.Search.WithSize(limit),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res, "searching recipes"); err != nil {
		return nil, 0, err
	}

	var resp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, resp.Hits.Total.Value, nil
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	var errResp map[string]any
	raw, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(raw, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", op, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", op, res.Status(), errResp["error"])
}
