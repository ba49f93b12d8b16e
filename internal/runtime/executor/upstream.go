// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/util"
)

// upstreamResponse is a fully read, decoded upstream response.
type upstreamResponse struct {
	status int
	header http.Header
	body   []byte
}

// upstreamClient sends requests to one provider with its identity headers applied.
type upstreamClient struct {
	provider   string
	cfg        config.ProviderConfig
	requestLog bool
	http       *http.Client
}

func newUpstreamClient(provider string, cfg config.ProviderConfig, sdk config.SDKConfig) (*upstreamClient, error) {
	client, err := util.NewHTTPClient(sdk.ProxyURL, 0)
	if err != nil {
		return nil, err
	}
	return &upstreamClient{provider: provider, cfg: cfg, requestLog: sdk.RequestLog, http: client}, nil
}

func (u *upstreamClient) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	util.ApplyBrowserHeaders(req, util.BrowserHeaders{
		UserAgent: u.cfg.UserAgent,
		Origin:    u.cfg.Origin,
		Referer:   u.cfg.Referer,
	})
	return req, nil
}

// do sends req bounded by timeout and reads the whole decoded body. A non-2xx status is
// returned both as the response and as a statusErr.
func (u *upstreamClient) do(req *http.Request, body []byte, timeout time.Duration) (*upstreamResponse, error) {
	ctx := req.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}
	// Custom headers override everything set so far, including identity headers.
	util.ApplyCustomHeaders(req, u.cfg.Headers)

	recordAPIRequest(ctx, u.requestLog, upstreamRequestLog{
		URL:      req.URL.String(),
		Method:   req.Method,
		Headers:  req.Header.Clone(),
		Body:     body,
		Provider: u.provider,
	})

	httpResp, err := u.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("%s executor: close response body error: %v", u.provider, errClose)
		}
	}()

	reader, err := decodeResponseBody(httpResp.Body, httpResp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	resp := &upstreamResponse{status: httpResp.StatusCode, header: httpResp.Header.Clone(), body: data}
	recordAPIResponse(ctx, u.requestLog, u.provider, resp.status, resp.header, data)

	if resp.status < 200 || resp.status >= 300 {
		log.Debugf("%s request error, status: %d, body: %s", u.provider, resp.status, summarizeErrorBody(resp.header.Get("Content-Type"), data))
		return resp, statusErr{code: resp.status, msg: summarizeErrorBody(resp.header.Get("Content-Type"), data)}
	}
	return resp, nil
}
