package ojs

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// FetchAll pages through a collection endpoint with offset/count until the
// server-reported itemsMax is reached or a short page comes back. Any failed
// page aborts the whole fetch. Items are returned sorted by id so callers
// process them in the same order on every run.
func FetchAll[T any](ctx context.Context, c *Client, endpoint string, pageSize int, id func(T) int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []T
	offset := 0
	for {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("count", strconv.Itoa(pageSize))

		var page ListResponse[T]
		if err := c.getJSON(ctx, endpoint, params, &page); err != nil {
			return nil, fmt.Errorf("fetch %s at offset %d: %w", endpoint, offset, err)
		}
		all = append(all, page.Items...)

		c.logger.Debug("fetched page", "endpoint", endpoint, "offset", offset, "items", len(page.Items), "items_max", page.ItemsMax)

		// itemsMax is optional; without it only a short page ends the loop.
		if len(page.Items) < pageSize || (page.ItemsMax > 0 && len(all) >= page.ItemsMax) {
			break
		}
		offset += len(page.Items)
	}

	sort.SliceStable(all, func(i, j int) bool { return id(all[i]) < id(all[j]) })
	return all, nil
}
