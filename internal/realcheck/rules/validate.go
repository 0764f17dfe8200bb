package rules

import (
	"fmt"

	checkerrors "codeRealityScanner/internal/realcheck/errors"
)

var errCatalogEmpty = checkerrors.NewCheckerError(checkerrors.ErrCatalogEmpty, "规则目录为空").
	WithLevel(checkerrors.LevelFatal).
	WithComponent("rules")

func errDuplicateID(id string) error {
	return checkerrors.NewCheckerError(checkerrors.ErrConfigInvalid,
		fmt.Sprintf("规则 ID 重复: %s", id)).
		WithLevel(checkerrors.LevelFatal).
		WithComponent("rules")
}

func errNoMatcher(id string) error {
	return checkerrors.NewCheckerError(checkerrors.ErrConfigInvalid,
		fmt.Sprintf("规则 %s 既无正则也无结构类型", id)).
		WithLevel(checkerrors.LevelFatal).
		WithComponent("rules")
}
