package odoo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrAuthenticationFailed means Odoo rejected the credentials or returned uid 0
	ErrAuthenticationFailed = errors.New("odoo: authentication failed")

	// ErrInvalidResponse is returned when a reply does not have the expected shape
	ErrInvalidResponse = errors.New("odoo: invalid RPC response")

	// ErrRPC is the base of every fault raised by the server
	ErrRPC = errors.New("odoo: XML-RPC call failed")
)

// RPCError is a fault returned by the Odoo server
type RPCError struct {
	Code    int
	Message string
	Err     error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRPC, e.Message)
}

func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

var faultPattern = regexp.MustCompile(`Fault\(?(-?\d+)\)?:\s*'?(.*?)'?\s*$`)

// parseFault turns a kolo/xmlrpc error string into an *RPCError
func parseFault(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	rpcErr := &RPCError{Message: strings.TrimPrefix(msg, "XML-RPC fault: "), Err: err}
	if m := faultPattern.FindStringSubmatch(msg); len(m) == 3 {
		if code, cerr := strconv.Atoi(m[1]); cerr == nil {
			rpcErr.Code = code
		}
		rpcErr.Message = m[2]
	}
	return rpcErr
}
