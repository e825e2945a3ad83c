package domain

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ValidateBuildID 校验 buildId 能否作为 K8s 标签值使用（sdbuild=<buildId>）。
func ValidateBuildID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: buildId is required", ErrInvalidInput)
	}
	if errs := validation.IsValidLabelValue(id); len(errs) > 0 {
		return fmt.Errorf("%w: buildId %q is not a valid label value: %s", ErrInvalidInput, id, strings.Join(errs, "; "))
	}
	return nil
}

func (r BuildRequest) Validate() error {
	if err := ValidateBuildID(r.BuildID); err != nil {
		return err
	}
	if r.ScmURL == "" {
		return fmt.Errorf("%w: scmUrl is required", ErrInvalidInput)
	}
	return nil
}
