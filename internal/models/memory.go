package models

import (
	"fmt"
	"strings"
)

type MemoryUnit string

const (
	MemoryUnitB  MemoryUnit = "B"
	MemoryUnitKB MemoryUnit = "KB"
	MemoryUnitMB MemoryUnit = "MB"
	MemoryUnitGB MemoryUnit = "GB"
)

func ParseMemoryUnit(s string) (MemoryUnit, error) {
	switch MemoryUnit(strings.ToUpper(s)) {
	case MemoryUnitB:
		return MemoryUnitB, nil
	case MemoryUnitKB:
		return MemoryUnitKB, nil
	case MemoryUnitMB:
		return MemoryUnitMB, nil
	case MemoryUnitGB:
		return MemoryUnitGB, nil
	default:
		return "", fmt.Errorf("invalid memory unit: %s", s)
	}
}

// ToBytes converts n units to bytes.
func ToBytes(n int, unit MemoryUnit) int64 {
	switch unit {
	case MemoryUnitKB:
		return int64(n) << 10
	case MemoryUnitMB:
		return int64(n) << 20
	case MemoryUnitGB:
		return int64(n) << 30
	default:
		return int64(n)
	}
}
