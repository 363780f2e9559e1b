package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"frp-manager/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
}

/**
 * Create new HTTP client for the frp-manager API
 * @param {*HTTPConfig} config - HTTP client configuration, nil for the local default
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - unix网络下所有请求都拨到socket文件，URL中的主机名被忽略
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig("")
	}

	client := &httpClient{
		config:    config,
		transport: &http.Transport{},
	}
	if config.Network == "unix" {
		client.transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", config.Address)
		}
	}

	client.client = &http.Client{
		Transport: client.transport,
		Timeout:   config.Timeout,
	}

	return client
}

func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodGet, path, params, nil)
}

func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodPost, path, nil, data)
}

func (c *httpClient) Put(path string, data interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodPut, path, nil, data)
}

func (c *httpClient) Delete(path string) (*HTTPResponse, error) {
	return c.do(http.MethodDelete, path, nil, nil)
}

/**
 * Send request to the server
 * @param {string} method - HTTP method
 * @param {string} path - API endpoint path
 * @param {map[string]interface{}} params - Query parameters
 * @param {interface{}} data - Request body, serialized to JSON
 * @returns {*HTTPResponse} Response, non-2xx responses are not errors
 * @returns {error} Connection or serialization error
 */
func (c *httpClient) do(method, path string, params map[string]interface{}, data interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var body io.Reader
	if data != nil {
		if body, err = serializeData(data); err != nil {
			return nil, err
		}
	}

	logger.Debugf("Sending %s request to %s", method, url)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Close 关闭空闲连接
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	logger.Debugf("HTTP client connection closed")
	return nil
}
