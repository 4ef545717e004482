// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"

	config "codeberg.org/pixivfe/markerscan/configs"
	"codeberg.org/pixivfe/markerscan/core/extract"
	"codeberg.org/pixivfe/markerscan/core/sources"
)

func writeResult(w io.Writer, result *sources.Result, format string) error {
	if format == config.FormatText {
		return writeText(w, result)
	}

	out, err := yaml.MarshalWithOptions(result, yaml.Indent(2), quotedStrings)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = w.Write(out)

	return err
}

// quotedStrings renders every string double-quoted and escaped, so leading
// blanks, line breaks and control characters read back unchanged.
var quotedStrings = yaml.CustomMarshaler(func(s string) ([]byte, error) {
	return []byte(strconv.Quote(s)), nil
})

// writeText prints one line per record:
//
//	path:line:column: marker "singular" ["plural"] [context="..."] [+args]
func writeText(w io.Writer, result *sources.Result) error {
	bw := bufio.NewWriter(w)

	for path, rec := range result.Records() {
		fmt.Fprintf(bw, "%s:%d:%d: %s %s", path, rec.Line, rec.Column, rec.Marker, strconv.Quote(rec.Singular()))

		if rec.Kind == extract.Plural {
			fmt.Fprintf(bw, " %s", strconv.Quote(rec.Plural()))
		}

		if rec.Context != "" {
			fmt.Fprintf(bw, " context=%s", strconv.Quote(rec.Context))
		}

		if rec.HasArgs {
			bw.WriteString(" +args")
		}

		bw.WriteByte('\n')
	}

	return bw.Flush()
}
