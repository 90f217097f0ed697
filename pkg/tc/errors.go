package tc

import (
	"github.com/pkg/errors"
)

// Sentinel errors for the failure kinds surfaced by this package and its
// drivers. Callers match them through wrap chains with errors.Is.
var (
	// ErrDeviceNotFound indicates the network device does not exist on the host
	ErrDeviceNotFound = errors.New("device not found")
	// ErrParentNotFound indicates the parent qdisc or class a desired object
	// refers to does not exist in live state
	ErrParentNotFound = errors.New("parent not found")
	// ErrFlowIDUnreachable indicates a filter flowid does not reference a class
	// under the filter's parent subtree
	ErrFlowIDUnreachable = errors.New("flowid not reachable from parent")
	// ErrPortOutOfRange indicates a port outside the range 0-65535
	ErrPortOutOfRange = errors.New("port out of range")
	// ErrMissingCgroupHandle indicates a cgroup filter without a handle
	ErrMissingCgroupHandle = errors.New("cgroup filter requires a handle")
	// ErrCommandFailed indicates a tc invocation exited non zero or its effect
	// could not be confirmed by re-reading live state
	ErrCommandFailed = errors.New("tc command failed")
	// ErrParse indicates tc produced output this package cannot interpret
	ErrParse = errors.New("failed to parse tc output")
)
