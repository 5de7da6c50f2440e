// Copyright © 2026, Prepatools Authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package collepdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/prepatools/collepdf/logger"
)

// ParseWeekList extracts the week PDF URLs from the colle-program index
// page. The page lists one link per week inside its first ordered list;
// the links are returned in page order, which is week order.
func ParseWeekList(page []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing index page: %w", err)
	}
	list := findFirst(root, "ol")
	if list == nil {
		return nil, errors.New("index page has no week list")
	}
	var urls []string
	walk(list, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		for _, a := range n.Attr {
			if a.Key == "href" && a.Val != "" {
				urls = append(urls, a.Val)
				return
			}
		}
	})
	if len(urls) == 0 {
		return nil, errors.New("week list has no links")
	}
	logger.Debug("week list parsed", "weeks", len(urls), true)
	return urls, nil
}

// FetchWeekList retrieves the index page through f and parses it.
func FetchWeekList(ctx context.Context, f Fetcher, url string) ([]string, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseWeekList(body)
}

// findFirst returns the first element named tag in document order.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := findFirst(c, tag); m != nil {
			return m
		}
	}
	return nil
}

// walk calls fn on n and every descendant.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
