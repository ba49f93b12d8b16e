// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("status %d: %s", e.code, e.msg)
	}
	return fmt.Sprintf("status %d", e.code)
}

func (e statusErr) StatusCode() int { return e.code }

// authRejected reports whether the upstream refused the credential.
func (e statusErr) authRejected() bool {
	return e.code == http.StatusUnauthorized || e.code == http.StatusForbidden
}

// classifyError maps a transport or status error to an outcome. Authentication rejections
// are returned as AuthExpired; the caller is responsible for invalidating the credential.
func classifyError(err error) sdkexecutor.Outcome {
	if err == nil {
		return sdkexecutor.Transient("unknown error")
	}
	var se statusErr
	if errors.As(err, &se) {
		if se.authRejected() {
			return sdkexecutor.AuthExpired(se.Error())
		}
		return sdkexecutor.Transient(se.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sdkexecutor.Transient("timeout")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return sdkexecutor.Transient("timeout")
	}
	return sdkexecutor.Transient(err.Error())
}
