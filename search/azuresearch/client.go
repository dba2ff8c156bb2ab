// Copyright (c) Microsoft. All rights reserved.

// Package azuresearch queries and provisions an Azure AI Search index over
// the azcore HTTP pipeline.
package azuresearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/contoso/travelagent/retrieval"
)

const (
	moduleName    = "azuresearch"
	moduleVersion = "v0.1.0"

	// APIVersion is the search REST API version sent with every request.
	APIVersion = "2023-11-01"

	tokenScope = "https://search.azure.com/.default"
)

// ClientOptions configures a [Client]. Requests are attempted once unless
// Retry.MaxRetries is set.
type ClientOptions struct {
	azcore.ClientOptions
}

// Client talks to one index of an Azure AI Search service.
type Client struct {
	endpoint string
	index    string
	pl       runtime.Pipeline
}

var _ retrieval.Backend = (*Client)(nil)

// NewClientWithKey authenticates with an admin or query key sent in the
// api-key header.
func NewClientWithKey(endpoint, index, key string, options *ClientOptions) (*Client, error) {
	if key == "" {
		return nil, errors.New("azuresearch: empty api key")
	}
	auth := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(key), "api-key", nil)
	return newClient(endpoint, index, auth, options)
}

// NewClient authenticates with Microsoft Entra ID.
func NewClient(endpoint, index string, cred azcore.TokenCredential, options *ClientOptions) (*Client, error) {
	if cred == nil {
		return nil, errors.New("azuresearch: nil credential")
	}
	auth := runtime.NewBearerTokenPolicy(cred, []string{tokenScope}, nil)
	return newClient(endpoint, index, auth, options)
}

func newClient(endpoint, index string, auth policy.Policy, options *ClientOptions) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("azuresearch: empty endpoint")
	}
	if index == "" {
		return nil, errors.New("azuresearch: empty index name")
	}
	var opts azcore.ClientOptions
	if options != nil {
		opts = options.ClientOptions
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry.MaxRetries = -1
	}
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{auth},
	}, &opts)
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		index:    index,
		pl:       pl,
	}, nil
}

// Index returns the index name.
func (c *Client) Index() string { return c.index }

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
	Select string `json:"select"`
}

type searchResponse struct {
	Value []retrieval.Document `json:"value"`
}

// Search runs a full-text query and returns up to top documents in score
// order.
func (c *Client) Search(ctx context.Context, query string, top int) ([]retrieval.Document, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "indexes", c.index, "docs", "search")
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, searchRequest{Search: query, Top: top, Select: "id,content"}); err != nil {
		return nil, err
	}
	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}
	var out searchResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("azuresearch: decode search response: %w", err)
	}
	return out.Value, nil
}

type field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Filterable bool   `json:"filterable,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
}

type indexDefinition struct {
	Name   string  `json:"name"`
	Fields []field `json:"fields"`
}

// EnsureIndex creates the index, or updates it in place when it exists.
func (c *Client) EnsureIndex(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPut, "indexes", c.index)
	if err != nil {
		return err
	}
	def := indexDefinition{
		Name: c.index,
		Fields: []field{
			{Name: "id", Type: "Edm.String", Key: true, Filterable: true},
			{Name: "content", Type: "Edm.String", Searchable: true},
		},
	}
	if err := runtime.MarshalAsJSON(req, def); err != nil {
		return err
	}
	resp, err := c.pl.Do(req)
	if err != nil {
		return err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusCreated, http.StatusNoContent) {
		return runtime.NewResponseError(resp)
	}
	return nil
}

type indexAction struct {
	Action  string `json:"@search.action"`
	ID      string `json:"id"`
	Content string `json:"content"`
}

type indexBatch struct {
	Value []indexAction `json:"value"`
}

type indexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

type indexResponse struct {
	Value []indexResult `json:"value"`
}

// Upsert merges or uploads docs by ID in a single batch.
func (c *Client) Upsert(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := indexBatch{Value: make([]indexAction, len(docs))}
	for i, d := range docs {
		batch.Value[i] = indexAction{Action: "mergeOrUpload", ID: d.ID, Content: d.Content}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "indexes", c.index, "docs", "index")
	if err != nil {
		return err
	}
	if err := runtime.MarshalAsJSON(req, batch); err != nil {
		return err
	}
	resp, err := c.pl.Do(req)
	if err != nil {
		return err
	}
	// 207 means some documents failed; the body says which.
	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusMultiStatus) {
		return runtime.NewResponseError(resp)
	}
	var out indexResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return fmt.Errorf("azuresearch: decode index response: %w", err)
	}
	var errs []error
	for _, r := range out.Value {
		if !r.Status {
			errs = append(errs, fmt.Errorf("azuresearch: document %s: %d %s", r.Key, r.StatusCode, r.ErrorMessage))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) newRequest(ctx context.Context, method string, paths ...string) (*policy.Request, error) {
	req, err := runtime.NewRequest(ctx, method, runtime.JoinPaths(c.endpoint, paths...))
	if err != nil {
		return nil, err
	}
	q := req.Raw().URL.Query()
	q.Set("api-version", APIVersion)
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header.Set("Accept", "application/json")
	return req, nil
}
