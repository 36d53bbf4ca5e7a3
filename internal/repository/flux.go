package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"energy_usage/internal/models"
)

// deviceTag is the tag every energy point is keyed by.
const deviceTag = "deviceId"

// BuildSumQuery renders the Flux query summing field over the window, grouped by
// device. An empty ids slice queries every device.
func BuildSumQuery(bucket, measurement, field string, w models.Window, ids []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: time(v: %q), stop: time(v: %q))\n",
		w.Start.UTC().Format(time.RFC3339Nano), w.Stop.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[\"_measurement\"] == %q)\n", measurement)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[\"_field\"] == %q)\n", field)
	if len(ids) > 0 {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", deviceDisjunction(ids))
	}
	fmt.Fprintf(&b, "  |> group(columns: [%q])\n", deviceTag)
	b.WriteString("  |> sum(column: \"_value\")\n")
	return b.String()
}

// deviceDisjunction builds r["deviceId"] == "1" or r["deviceId"] == "2" ...
func deviceDisjunction(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("r[%q] == %q", deviceTag, strconv.FormatInt(id, 10)))
	}
	return strings.Join(parts, " or ")
}

// chunkIDs splits ids into batches of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	if size < 1 {
		size = len(ids)
	}
	var out [][]int64
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
