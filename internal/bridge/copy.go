package bridge

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// Copy streams the content of src into dst, creating or truncating dst.
// src and dst may be served by different providers; copying a document onto
// itself fails with ErrWriteFailure before anything is opened. ctx is
// checked between chunks. On failure, dst is discarded where the provider
// commits on close and left partially written otherwise.
func (b *Bridge) Copy(ctx context.Context, src, dst location.Location) (n int64, err error) {
	defer observe("copy", time.Now(), &err)

	if b.sameDocument(src, dst) {
		return 0, apperrors.NewContentError("copy", dst.String(), apperrors.ErrWriteFailure,
			errors.New("source and destination are the same document"))
	}

	_, in, err := b.openDocument(ctx, src, provider.ModeRead)
	if err != nil {
		return 0, apperrors.NewContentError("copy", src.String(), apperrors.ErrNotFound, err)
	}
	defer in.Close()

	_, out, err := b.openDocument(ctx, dst, provider.ModeWrite)
	if err != nil {
		return 0, apperrors.NewContentError("copy", dst.String(), apperrors.ErrNotFound, err)
	}

	buf := make([]byte, constants.ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			provider.Discard(out)
			return n, err
		}
		nr, rerr := in.Read(buf)
		if nr > 0 {
			nw, werr := out.Write(buf[:nr])
			n += int64(nw)
			if werr != nil {
				provider.Discard(out)
				return n, apperrors.NewContentError("copy", dst.String(), apperrors.ErrWriteFailure, werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			provider.Discard(out)
			return n, apperrors.NewContentError("copy", src.String(), apperrors.ErrReadFailure, rerr)
		}
	}
	if err := out.Close(); err != nil {
		return n, apperrors.NewContentError("copy", dst.String(), apperrors.ErrWriteFailure, err)
	}
	metrics.RecordRead(int(n))
	metrics.RecordWrite(int(n))
	return n, nil
}

// sameDocument reports whether src and dst name the same document: the same
// document ID on the same provider, or the same existing host file.
func (b *Bridge) sameDocument(src, dst location.Location) bool {
	if src.Equal(dst) {
		return true
	}
	sp, sid, err := b.resolver.Resolve(src)
	if err != nil {
		return false
	}
	dp, did, err := b.resolver.Resolve(dst)
	if err != nil {
		return false
	}
	if sp == dp && sid == did {
		return true
	}
	sh, ok := sp.(provider.HostPather)
	if !ok {
		return false
	}
	dh, ok := dp.(provider.HostPather)
	if !ok {
		return false
	}
	spath, err := sh.HostPath(sid)
	if err != nil {
		return false
	}
	dpath, err := dh.HostPath(did)
	if err != nil {
		return false
	}
	sfi, err := os.Stat(spath)
	if err != nil {
		return false
	}
	dfi, err := os.Stat(dpath)
	if err != nil {
		return false
	}
	return os.SameFile(sfi, dfi)
}
