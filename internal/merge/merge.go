// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package merge

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/orbfw/fwimage/internal/elfseg"
)

// MergeInput holds the segments combined by Merge.
type MergeInput struct {
	SBSFU  elfseg.Segment
	Loader *elfseg.Segment
	App    *elfseg.Segment
	// Header is the installed header binary.
	Header []byte
	// HeaderAddress places the header explicitly. When nil the header
	// immediately precedes the application.
	HeaderAddress *uint32
	Pad           byte
}

// Merge lays out the boot loader, the optional loader, the header and the
// optional user application in one contiguous binary:
//
//   - with a loader: sbsfu, pad, loader, pad, header, application;
//   - with an explicit header address not following sbsfu: the header is
//     spliced in place, or placed after a pad, and repeated before the
//     application;
//   - otherwise: sbsfu, pad, header, application.
func Merge(ctx context.Context, in MergeInput) ([]byte, error) {
	log := logr.FromContextOrDiscard(ctx)

	headerAddr, err := headerAddress(in.HeaderAddress, in.App, len(in.Header))
	if err != nil {
		return nil, err
	}

	img := newImage(in.SBSFU, in.Pad)
	kv := []any{"sbsfu", fmt.Sprintf("0x%08x", in.SBSFU.Base), "header", fmt.Sprintf("0x%08x", headerAddr)}
	if in.Loader != nil {
		kv = append(kv, "loader", fmt.Sprintf("0x%08x", in.Loader.Base))
	}
	if in.App != nil {
		kv = append(kv, "appli", fmt.Sprintf("0x%08x", in.App.Base))
	}
	log.V(1).Info("merging", kv...)

	switch {
	case in.Loader != nil:
		if uint64(in.Loader.Base) < img.end() {
			return nil, conflict(ExitSBSFUTooLarge, ErrSBSFUTooLarge,
				"sbsfu ends at 0x%08x, loader starts at 0x%08x", img.end(), in.Loader.Base)
		}
		if headerAddr < in.Loader.End() {
			return nil, conflict(ExitLoaderTooLarge, ErrLoaderTooLarge,
				"loader ends at 0x%08x, header starts at 0x%08x", in.Loader.End(), headerAddr)
		}
		if err := img.padTo(uint64(in.Loader.Base), "loader"); err != nil {
			return nil, err
		}
		img.write(in.Loader.Data)
		if err := img.padTo(headerAddr, "header"); err != nil {
			return nil, err
		}
		img.write(in.Header)
	case in.HeaderAddress != nil && headerAddr != img.end():
		if headerAddr < img.end() {
			if err := img.splice(headerAddr, in.Header); err != nil {
				return nil, err
			}
		} else {
			if err := img.padTo(headerAddr, "header"); err != nil {
				return nil, err
			}
			img.write(in.Header)
		}
	default:
		if err := img.padTo(headerAddr, "header"); err != nil {
			return nil, err
		}
		img.write(in.Header)
	}

	if err := img.placeApp(in.App, in.Header); err != nil {
		return nil, err
	}
	return img.data, nil
}

// AppendInput holds the segments combined by Append.
type AppendInput struct {
	// Binary is an existing raw binary loaded at Address.
	Binary  []byte
	Address uint32
	App     elfseg.Segment
	Header  []byte
	// HeaderAddress places the header explicitly. When nil the header
	// immediately precedes the application.
	HeaderAddress *uint32
	Pad           byte
}

// Append adds the header and the user application to an existing binary.
// A header address inside the binary overwrites it in place and the
// header is repeated right before the application.
func Append(ctx context.Context, in AppendInput) ([]byte, error) {
	app := in.App
	headerAddr, err := headerAddress(in.HeaderAddress, &app, len(in.Header))
	if err != nil {
		return nil, err
	}

	img := newImage(elfseg.RawSegment(in.Binary, in.Address), in.Pad)
	logr.FromContextOrDiscard(ctx).V(1).Info("appending",
		"binary", fmt.Sprintf("0x%08x", in.Address),
		"header", fmt.Sprintf("0x%08x", headerAddr),
		"appli", fmt.Sprintf("0x%08x", app.Base))

	if headerAddr < img.end() {
		if err := img.splice(headerAddr, in.Header); err != nil {
			return nil, err
		}
	} else {
		if err := img.padTo(headerAddr, "header"); err != nil {
			return nil, err
		}
		img.write(in.Header)
	}

	if err := img.placeApp(&app, in.Header); err != nil {
		return nil, err
	}
	return img.data, nil
}
