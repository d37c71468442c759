// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rewrite transforms AI reply text before it is shown to the user.
//
// Each pass is a pure function over its input: text outside matched spans
// is never altered, and a pass applied to text with no matches returns it
// unchanged. Passes compose with Chain in a fixed order.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
)

// Pass rewrites reply text. The context covers any collaborator lookups a
// pass needs (the sign-marker pass resolves an asset reference).
type Pass func(ctx context.Context, text string) (string, error)

// Resolver is the slice of the knowledge-lookup collaborator the
// sign-marker pass needs.
type Resolver interface {
	SliceID(ctx context.Context, query string) (string, error)
}

// downloadPathPrefix is where the relay serves resolved assets.
const downloadPathPrefix = "/api/download-image/"

// illustrationRe matches paired or self-closing illustration tags carrying
// a data-ref attribute, case-insensitively. The single capture group is the
// reference id.
var illustrationRe = regexp.MustCompile(
	`(?i)<illustration[^>]*data-ref\s*=\s*["']([^"']+)["'][^>]*(?:/>|>\s*</illustration>)`)

// signRe matches the literal sign marker emitted by some knowledge bases.
var signRe = regexp.MustCompile(`(?i)<sign\s*/?>`)

// assetImage renders the inline asset reference for a resolved id, wrapped
// with line-break markers on both sides.
func assetImage(ref string) string {
	return fmt.Sprintf(`<br><img src="%s%s" alt="%s" class="message-image"><br>`,
		downloadPathPrefix, ref, ref)
}

// Illustrations returns the reference-tag pass: every illustration tag with
// a data-ref attribute becomes an inline asset reference embedding the
// extracted id.
func Illustrations() Pass {
	return func(_ context.Context, text string) (string, error) {
		return illustrationRe.ReplaceAllStringFunc(text, func(match string) string {
			ref := illustrationRe.FindStringSubmatch(match)[1]
			return assetImage(ref)
		}), nil
	}
}

// SignMarkers returns the sign-marker pass: every literal sign marker is
// replaced with the asset resolved from the fixed lookup query. When
// resolution fails or yields no id, the text is returned unchanged — a
// broken lookup must not mangle the reply.
func SignMarkers(resolver Resolver, query string) Pass {
	return func(ctx context.Context, text string) (string, error) {
		if !signRe.MatchString(text) {
			return text, nil
		}

		ref, err := resolver.SliceID(ctx, query)
		if err != nil || ref == "" {
			return text, err
		}
		return signRe.ReplaceAllString(text, assetImage(ref)), nil
	}
}

// Chain composes passes left to right. A pass error stops the chain and
// returns the text rewritten so far.
func Chain(passes ...Pass) Pass {
	return func(ctx context.Context, text string) (string, error) {
		var err error
		for _, pass := range passes {
			text, err = pass(ctx, text)
			if err != nil {
				return text, err
			}
		}
		return text, nil
	}
}
