/*
Copyright © 2022 the redmodel authors.
This file is part of redmodel.

redmodel is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

redmodel is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with redmodel.  If not, see <http://www.gnu.org/licenses/>.
*/


package redutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"gocloud.dev/blob"
)

// openInput opens the input file at path, which can be a local file, an
// http(s) URL or a blob storage location.
func openInput(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		return downloadHTTP(ctx, path)
	case IsBlob(path):
		return downloadBlob(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func downloadHTTP(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("redutil: downloading %s: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redutil: downloading %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("redutil: downloading %s: %s", path, resp.Status)
	}
	return resp.Body, nil
}

// blobReader closes the bucket along with the reader.
type blobReader struct {
	*blob.Reader
	b *blob.Bucket
}

func (r blobReader) Close() error {
	err := r.Reader.Close()
	if err2 := r.b.Close(); err == nil {
		err = err2
	}
	return err
}

func downloadBlob(ctx context.Context, path string) (io.ReadCloser, error) {
	b, key, err := openBlob(ctx, path)
	if err != nil {
		return nil, err
	}
	r, err := b.NewReader(ctx, key, nil)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("redutil: downloading %s: %v", path, err)
	}
	return blobReader{Reader: r, b: b}, nil
}
