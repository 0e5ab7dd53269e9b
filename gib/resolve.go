package gib

import (
	"log"

	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

// castVotes lets every flip cell vote on its faces: +1 for a face outside
// the zone, -1 for a zone face. Votes on coupled faces are summed over
// both ranks.
func castVotes(m mesh.Provider, s parallel.Syncer, fc faceClasses, mark, flipCell []bool) ([]int, error) {
	var (
		cells = m.Cells()
		votes = make([]int, m.NFaces())
	)
	for c, flip := range flipCell {
		if !flip {
			continue
		}
		for _, f := range cells[c] {
			if !fc.voting[f] {
				continue
			}
			if mark[f] {
				votes[f]--
			} else {
				votes[f]++
			}
		}
	}
	if err := s.SyncFaceInt(votes, parallel.SumOp); err != nil {
		return nil, err
	}
	return votes, nil
}

type resolveCounts struct {
	entered, left, claims, releases int
}

// resolveVotes revises the zone membership and flip map from the votes.
// Entering faces take the side of their owner cell after the flips.
func resolveVotes(owner []int, votes []int, mark, flipMap, faceID []bool, region []int,
	policy ReleasePolicy, logger *log.Logger) (newMark, newFlip []bool, rc resolveCounts) {
	newMark = append([]bool(nil), mark...)
	newFlip = append([]bool(nil), flipMap...)
	enter := func(f int) {
		newMark[f] = true
		newFlip[f] = region[owner[f]] == 1
	}
	for f, v := range votes {
		switch v {
		case 1:
			enter(f)
			rc.entered++
		case -1:
			newMark[f], newFlip[f] = false, false
			rc.left++
		case 2:
			rc.claims++
			action := "left out of zone"
			if faceID[f] != mark[f] {
				enter(f)
				rc.entered++
				action = "entered"
			} else if mark[f] {
				newMark[f], newFlip[f] = false, false
				action = "removed"
			}
			logger.Printf("warning: face %d claimed by both cells, %s", f, action)
		case -2:
			rc.releases++
			action := "kept"
			if policy == ReleaseRegions {
				if faceID[f] {
					newFlip[f] = region[owner[f]] == 1
				} else {
					newMark[f], newFlip[f] = false, false
					rc.left++
					action = "removed"
				}
			}
			logger.Printf("warning: face %d released by both cells, %s", f, action)
		}
	}
	return
}
