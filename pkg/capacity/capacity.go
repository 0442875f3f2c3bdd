package capacity

import (
	"github.com/forgeops/anvil/pkg/types"
)

// Check compares a pool's free space against the required volume size.
// It is a pure comparison over data already obtained by discovery; it
// never queries the backend itself. An absent pool yields Found=false.
func Check(pools []types.Pool, poolName string, requiredBytes int64) types.CapacityResult {
	for _, p := range pools {
		if p.Name != poolName {
			continue
		}
		return types.CapacityResult{
			Found:         true,
			Sufficient:    p.FreeBytes >= requiredBytes,
			FreeBytes:     p.FreeBytes,
			RequiredBytes: requiredBytes,
		}
	}
	return types.CapacityResult{
		Found:         false,
		RequiredBytes: requiredBytes,
	}
}
