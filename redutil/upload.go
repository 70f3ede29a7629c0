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
	"net/url"
	"os"
	"path/filepath"
	"strings"

	red "github.com/diegopintossi/redmodel"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // registers gs:// buckets
	_ "gocloud.dev/blob/memblob" // registers mem:// buckets
	_ "gocloud.dev/blob/s3blob"  // registers s3:// buckets
)

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', 'mem://' or 'file://').
func IsBlob(path string) bool {
	for _, prefix := range []string{"gs://", "s3://", "mem://", "file://"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// openBlob opens the bucket holding the blob at path and returns it
// with the key of the blob within the bucket. For "file" URLs the bucket
// is the directory holding the file; for other providers it is the host
// part of the URL. Credentials for "gs" and "s3" buckets are taken from
// the environment.
func openBlob(ctx context.Context, path string) (*blob.Bucket, string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, "", fmt.Errorf("redutil: parsing blob url '%s': %v", path, err)
	}
	if u.Scheme == "file" {
		p := filepath.FromSlash(u.Host + u.Path)
		b, err := fileblob.OpenBucket(filepath.Dir(p), nil)
		if err != nil {
			return nil, "", fmt.Errorf("redutil: opening bucket for '%s': %v", path, err)
		}
		return b, filepath.Base(p), nil
	}
	b, err := blob.OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return nil, "", fmt.Errorf("redutil: opening bucket for '%s': %v", path, err)
	}
	return b, strings.TrimPrefix(u.Path, "/"), nil
}

// uploadFile copies the local file at localPath to key in bucket b.
func uploadFile(ctx context.Context, b *blob.Bucket, key, localPath string) error {
	r, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("redutil: opening file '%s' for upload: %v", localPath, err)
	}
	defer r.Close()
	w, err := b.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("redutil: opening writer to upload file '%s': %v", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("redutil: uploading file '%s' to '%s': %v", localPath, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("redutil: uploading file '%s' to '%s': %v", localPath, key, err)
	}
	return nil
}

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the upload method is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "redmodel")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, fmt.Sprintf("%d_%s", len(u.files), filepath.Base(path)))
	u.files = append(u.files, [2]string{local, path})
	return local
}

// upload uploads the files registered with maybeUpload and removes the
// temporary directory.
func (u *uploader) upload(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		b, key, err := openBlob(ctx, files[1])
		if err != nil {
			return err
		}
		err = uploadFile(ctx, b, key, files[0])
		b.Close()
		if err != nil {
			return err
		}
	}
	if u.dir != "" {
		return os.RemoveAll(u.dir)
	}
	return nil
}

// uploadOutput returns a function that uploads the output files.
func (u *uploader) uploadOutput(ctx context.Context) red.StackManipulator {
	return func(*red.Model) error { return u.upload(ctx) }
}
