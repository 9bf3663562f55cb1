package binner

import tiledb "github.com/TileDB-Inc/TileDB-Go"

// ArrayOpen opens a TileDB array in the given mode, freeing the handle
// if Open fails. Adapted from the root module's tiledb.go ArrayOpen,
// the same open-then-check-then-free pattern used throughout the
// teacher's TileDB wrapper code.
func ArrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, err
	}

	if err := array.Open(mode); err != nil {
		array.Free()
		return nil, err
	}

	return array, nil
}

// ZstdFilter builds a Zstandard compression filter at the given level,
// adapted from the root module's tiledb.go ZstdFilter.
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}

	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}

	return filt, nil
}

// AddFilters sequentially appends filters to a filter pipeline list.
func AddFilters(filterList *tiledb.FilterList, filters ...*tiledb.Filter) error {
	for _, f := range filters {
		if err := filterList.AddFilter(f); err != nil {
			return err
		}
	}
	return nil
}
