package reshape

import (
	"sort"

	"abiFrame/internal/model"
)

type groupKey struct {
	address string
	member  string
}

func (k groupKey) prefix() string {
	return k.address + "." + k.member + "."
}

// groupTable holds the rows of one (address, member) group. Columns are
// already qualified with the group prefix.
type groupTable struct {
	key  groupKey
	rows map[string]map[string]interface{}
}

// decodedRow is a successfully decoded record ready for grouping.
type decodedRow struct {
	rowKey  string
	address string
	member  string
	fields  map[string]interface{}
}

// buildGroups partitions decoded rows by (address, member) and qualifies
// their columns. Rows sharing a row key within a group are merged, with the
// later row winning on overlapping fields.
func buildGroups(rows []decodedRow) []*groupTable {
	index := make(map[groupKey]*groupTable)
	var groups []*groupTable

	for _, row := range rows {
		key := groupKey{address: row.address, member: row.member}
		group, ok := index[key]
		if !ok {
			group = &groupTable{key: key, rows: make(map[string]map[string]interface{})}
			index[key] = group
			groups = append(groups, group)
		}

		cells, ok := group.rows[row.rowKey]
		if !ok {
			cells = make(map[string]interface{}, len(row.fields))
			group.rows[row.rowKey] = cells
		}
		prefix := key.prefix()
		for field, value := range row.fields {
			cells[prefix+field] = value
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].key.address != groups[j].key.address {
			return groups[i].key.address < groups[j].key.address
		}
		return groups[i].key.member < groups[j].key.member
	})
	return groups
}

// foldGroups outer-joins the group tables on row key. Every row key of every
// group is present in the result, carrying only the columns of the groups it
// appeared in.
func foldGroups(groups []*groupTable) map[string]map[string]interface{} {
	acc := make(map[string]map[string]interface{})
	for _, group := range groups {
		for rowKey, cells := range group.rows {
			merged, ok := acc[rowKey]
			if !ok {
				merged = make(map[string]interface{}, len(cells))
				acc[rowKey] = merged
			}
			for col, value := range cells {
				merged[col] = value
			}
		}
	}
	return acc
}

// attachMeta inner-joins the merged rows with the identity of the original
// records. Row keys with no source record are dropped and returned.
func attachMeta(kind model.TableKind, merged map[string]map[string]interface{}, meta map[string]model.RowMeta) (*model.Table, []string) {
	table := model.NewTable(kind)
	var orphans []string
	for rowKey, cells := range merged {
		m, ok := meta[rowKey]
		if !ok {
			orphans = append(orphans, rowKey)
			continue
		}
		table.Add(rowKey, m, cells)
	}
	sort.Strings(orphans)
	return table, orphans
}
