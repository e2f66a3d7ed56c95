package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// ResultError carries the driver result behind a failed call. Kind is one of
// the core sentinels and is what errors.Is matches.
type ResultError struct {
	Kind   error
	Op     string
	Result vk.Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed with %s: %s", e.Op, VulkanResultString(e.Result, false), e.Kind)
}

func (e *ResultError) Unwrap() error {
	return e.Kind
}

func resultError(kind error, op string, result vk.Result) error {
	return errors.WithStack(&ResultError{Kind: kind, Op: op, Result: result})
}

// frameResultKind classifies results returned by fence waits, acquire and
// present.
func frameResultKind(result vk.Result) error {
	switch result {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return core.ErrSurfaceOutOfDate
	case vk.Timeout:
		return core.ErrSyncWaitTimeout
	case vk.ErrorDeviceLost:
		return core.ErrDeviceLost
	default:
		return core.ErrUnknown
	}
}

func frameResultError(op string, result vk.Result) error {
	return resultError(frameResultKind(result), op, result)
}

// ResultOf extracts the driver result from err, if any.
func ResultOf(err error) (vk.Result, bool) {
	var re *ResultError
	if errors.As(err, &re) {
		return re.Result, true
	}
	return vk.Success, false
}
