package persist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tirem/crossbar/internal/bar/palette"
	"github.com/tirem/crossbar/internal/bar/slot"
)

// MigrateV1 rewrites a version 1 snapshot into the current format.
//
// The legacy layout:
//
//	{
//	  "version": 1,
//	  "profile": "...",                       // optional
//	  "palettes": {
//	    "crossbar/j3/s5": {"sets": [...], "current": "..."}
//	  },
//	  "bars": {
//	    "crossbar": {
//	      "job_specific": true,
//	      "jobs": {"3": {"12": {...}, "5": {"cleared": true}}}
//	    },
//	    "hotbar1": {"slots": {"1": {...}}}
//	  },
//	  "keybinds": {"hotbar1:5": {"key": 59, "ctrl": true}}
//	}
//
// Legacy writers were inconsistent about job keys ("3", "j3", padded
// numerics); every job key passes through palette.NormalizeJob so one job
// never splits into two tables. Cleared sentinels and unmapped slots are
// carried over as tombstones. Rows with an unrecognized action type or an
// unparseable job key are dropped rather than failing the whole migration.
func MigrateV1(data []byte) ([]byte, error) {
	if v := gjson.GetBytes(data, "version").Int(); v != 1 {
		return nil, fmt.Errorf("not a version 1 snapshot (version %d)", v)
	}

	out := []byte(`{}`)
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, value)
	}

	set("version", currentVersion)
	profile := gjson.GetBytes(data, "profile").String()
	if profile == "" {
		profile = uuid.NewString()
	}
	set("profile", profile)

	// Palette scopes carry over verbatim; scope keys did not change.
	set("palettes", []any{})
	gjson.GetBytes(data, "palettes").ForEach(func(key, value gjson.Result) bool {
		names := []string{}
		value.Get("sets").ForEach(func(_, n gjson.Result) bool {
			names = append(names, n.String())
			return true
		})
		if len(names) == 0 {
			return true
		}
		set("palettes.-1", map[string]any{
			"key":    key.String(),
			"names":  names,
			"active": value.Get("current").String(),
		})
		return true
	})

	// Tables accumulate in a map first: legacy writers could split one job
	// across "3" and "j3", and those must land in a single canonical table.
	tables := map[string][]map[string]any{}
	var tableOrder []string
	collect := func(tableKey string, table gjson.Result) {
		entries := migrateTable(table)
		if len(entries) == 0 {
			return
		}
		if _, seen := tables[tableKey]; !seen {
			tableOrder = append(tableOrder, tableKey)
		}
		tables[tableKey] = append(tables[tableKey], entries...)
	}

	set("slots.bars", []any{})
	set("slots.tables", []any{})
	gjson.GetBytes(data, "bars").ForEach(func(barKey, bar gjson.Result) bool {
		barName := barKey.String()
		jobSpecific := bar.Get("job_specific").Bool()
		set("slots.bars.-1", map[string]any{
			"bar":          barName,
			"capacity":     int(bar.Get("capacity").Int()),
			"job_specific": jobSpecific,
		})

		if jobSpecific {
			bar.Get("jobs").ForEach(func(jobKey, table gjson.Result) bool {
				job, jerr := palette.NormalizeJob(jobKey.String())
				if jerr != nil {
					return true
				}
				collect(barName+"/"+palette.DefaultName+"/"+job.String(), table)
				return true
			})
		} else if table := bar.Get("slots"); table.Exists() {
			collect(barName+"/"+palette.DefaultName, table)
		}
		return true
	})
	for _, key := range tableOrder {
		set("slots.tables.-1", map[string]any{"key": key, "entries": tables[key]})
	}

	set("keybinds.bindings", []any{})
	set("keybinds.allowed", []any{})
	gjson.GetBytes(data, "keybinds").ForEach(func(refKey, value gjson.Result) bool {
		bar, idx, ok := strings.Cut(refKey.String(), ":")
		if !ok {
			return true
		}
		slotIdx, aerr := strconv.Atoi(idx)
		if aerr != nil {
			return true
		}
		binding := map[string]any{
			"ref": map[string]any{"bar": bar, "slot": slotIdx},
			"chord": map[string]any{
				"code":  int(value.Get("key").Int()),
				"ctrl":  value.Get("ctrl").Bool(),
				"alt":   value.Get("alt").Bool(),
				"shift": value.Get("shift").Bool(),
			},
		}
		if value.Get("cleared").Bool() {
			binding["cleared"] = true
		}
		set("keybinds.bindings.-1", binding)
		return true
	})

	if err != nil {
		return nil, fmt.Errorf("building migrated snapshot: %w", err)
	}
	return out, nil
}

// migrateTable converts one legacy slot table into entry objects.
func migrateTable(table gjson.Result) []map[string]any {
	var entries []map[string]any
	table.ForEach(func(idxKey, row gjson.Result) bool {
		idx, aerr := strconv.Atoi(idxKey.String())
		if aerr != nil || idx < 1 {
			return true
		}
		if row.Get("cleared").Bool() {
			entries = append(entries, map[string]any{"index": idx, "cleared": true})
			return true
		}
		kind := slot.KindFromName(row.Get("type").String())
		if kind == slot.KindNone {
			return true
		}
		binding := map[string]any{"kind": int(kind)}
		if id := row.Get("id"); id.Exists() {
			binding["id"] = int(id.Int())
		}
		if t := row.Get("target"); t.Exists() {
			binding["target"] = t.String()
		}
		if e := row.Get("equip"); e.Exists() {
			binding["equip_slot"] = int(e.Int())
		}
		if s := row.Get("script"); s.Exists() {
			binding["script"] = s.String()
		}
		if l := row.Get("label"); l.Exists() {
			binding["label"] = l.String()
		}
		entries = append(entries, map[string]any{"index": idx, "binding": binding})
		return true
	})
	return entries
}
