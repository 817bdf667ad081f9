package kex

import (
	"errors"

	"github.com/quantumgate/quantumgate/config"
)

// ChosenAlgorithms is the one-per-category result of meta exchange
// (spec.md §4.2: "intersects with its own preferences, picks one per
// category").
type ChosenAlgorithms struct {
	Hash                string
	PrimaryAsymmetric   string
	SecondaryAsymmetric string
	Symmetric           string
	Compression         string
}

// ErrNoCommonAlgorithm is returned when two sides share no algorithm in
// some category.
var ErrNoCommonAlgorithm = errors.New("kex: no common algorithm in category")

// SelectAlgorithms intersects inboundPreferences (the tie-break
// authority, spec.md §9 Open Question 1) against outboundOffered and
// picks, per category, the first entry of inboundPreferences that also
// appears in outboundOffered.
func SelectAlgorithms(inboundPreferences, outboundOffered config.SupportedAlgorithms) (ChosenAlgorithms, error) {
	hash, err := pickOne(inboundPreferences.Hash, outboundOffered.Hash)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	primary, err := pickOne(inboundPreferences.PrimaryAsymmetric, outboundOffered.PrimaryAsymmetric)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	secondary, err := pickOne(inboundPreferences.SecondaryAsymmetric, outboundOffered.SecondaryAsymmetric)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	symmetric, err := pickOne(inboundPreferences.Symmetric, outboundOffered.Symmetric)
	if err != nil {
		return ChosenAlgorithms{}, err
	}
	compression, err := pickOne(inboundPreferences.Compression, outboundOffered.Compression)
	if err != nil {
		return ChosenAlgorithms{}, err
	}

	return ChosenAlgorithms{
		Hash:                hash,
		PrimaryAsymmetric:   primary,
		SecondaryAsymmetric: secondary,
		Symmetric:           symmetric,
		Compression:         compression,
	}, nil
}

// pickOne walks preferred in order and returns the first entry also
// present in offered.
func pickOne(preferred, offered []string) (string, error) {
	offeredSet := make(map[string]struct{}, len(offered))
	for _, o := range offered {
		offeredSet[o] = struct{}{}
	}
	for _, p := range preferred {
		if _, ok := offeredSet[p]; ok {
			return p, nil
		}
	}
	return "", ErrNoCommonAlgorithm
}
