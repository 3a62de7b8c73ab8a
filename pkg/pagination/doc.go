// Package pagination provides the cursor bookkeeping used to list everything a
// server exposes across several pages.
//
// A Collector is fed the nextCursor of each page and reports whether another page
// should be requested:
//
//	col := pagination.NewCollector()
//	for col.HasMore {
//	    page, err := fetch(ctx, col.NextParams())
//	    if err != nil {
//	        return err
//	    }
//	    all = append(all, page.Tools...)
//	    if err := col.Update(page.NextCursor); err != nil {
//	        return err
//	    }
//	}
//
// Servers that repeat a cursor, or keep paging past MaxPages, end the listing with
// ErrCursorLoop or ErrTooManyPages.
package pagination
