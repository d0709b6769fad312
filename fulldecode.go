/*
@Description: incremental Gaussian elimination over retained repairs
@Language: Go 1.23.4
*/

package fecgo

import (
	"sync/atomic"

	"fecgo/galois"
)

// decodeRow is one repair's row in the elimination matrix: coeffs[j]
// is the coefficient of missingIDs[j] in this repair, or zero if the
// repair no longer references it; symbol/userSize are the repair's
// (mutable, cloned) right-hand side.
type decodeRow struct {
	repairID uint32
	coeffs   []uint32
	symbol   SymbolBuffer
	userSize []byte
}

// fullDecode attempts to resolve every currently missing source at
// once by solving the linear system formed by the retained repairs
// (spec §4.5 step 4). It requires at least as many retained repairs as
// missing ids; on success every missing id is decoded and absorbed, on
// rank deficiency state is left unchanged and the failure is counted.
func (d *decoderCore) fullDecode() {
	missingIDs := d.missing.Keys()
	k := len(missingIDs)
	if k < 2 {
		return
	}

	var repairIDs []uint32
	d.repairs.ForEach(func(id uint32, _ *Repair) { repairIDs = append(repairIDs, id) })
	if len(repairIDs) < k {
		return
	}

	rows := make([]decodeRow, 0, len(repairIDs))
	maxLen := 0
	for _, rid := range repairIDs {
		r, _ := d.repairs.Get(rid)
		row := decodeRow{
			repairID: rid,
			coeffs:   make([]uint32, k),
			symbol:   r.EncodedSymbol.Clone(),
			userSize: append([]byte(nil), r.EncodedUserSize...),
		}
		for j, id := range missingIDs {
			if r.hasSourceID(id) {
				row.coeffs[j] = galois.Coefficient(d.field, rid, id)
			}
		}
		if row.symbol.Len() > maxLen {
			maxLen = row.symbol.Len()
		}
		rows = append(rows, row)
	}
	for i := range rows {
		if rows[i].symbol.Len() < maxLen {
			rows[i].symbol.Resize(maxLen)
		}
	}

	solved, ok := gaussianEliminate(d.field, rows, k)
	if !ok {
		atomic.AddUint64(&d.nbFailedFullDecodings, 1)
		return
	}

	for _, rid := range repairIDs {
		d.repairs.Delete(rid)
	}
	for j, id := range missingIDs {
		row := solved[j]
		src := Source{ID: id, Symbol: row.symbol, UserSize: decodeUserSize(row.userSize)}
		atomic.AddUint64(&d.nbDecoded, 1)
		d.absorb(src)
	}
}

// gaussianEliminate reduces rows (n >= k of them, each with k
// coefficient columns) to row-echelon form with partial pivoting,
// returning the k rows isolating one column each in column order, or
// false if no pivot can be found for some column (rank deficient).
func gaussianEliminate(field galois.Field, rows []decodeRow, k int) ([]decodeRow, bool) {
	n := len(rows)
	used := make([]bool, n)
	pivotForCol := make([]int, k)

	for col := 0; col < k; col++ {
		pivot := -1
		for r := 0; r < n; r++ {
			if !used[r] && rows[r].coeffs[col] != 0 {
				pivot = r
				break
			}
		}
		if pivot == -1 {
			return nil, false
		}
		used[pivot] = true
		pivotForCol[col] = pivot

		inv, err := field.Inv(rows[pivot].coeffs[col])
		if err != nil {
			return nil, false
		}
		if err := scaleRow(field, &rows[pivot], inv); err != nil {
			return nil, false
		}

		for r := 0; r < n; r++ {
			if r == pivot {
				continue
			}
			c := rows[r].coeffs[col]
			if c == 0 {
				continue
			}
			if err := eliminateRow(field, &rows[r], &rows[pivot], c); err != nil {
				return nil, false
			}
		}
	}

	out := make([]decodeRow, k)
	for col := 0; col < k; col++ {
		out[col] = rows[pivotForCol[col]]
	}
	return out, true
}

// scaleRow multiplies every coefficient and the whole RHS (symbol,
// user_size) of row by coef in place.
func scaleRow(field galois.Field, row *decodeRow, coef uint32) error {
	for j := range row.coeffs {
		if row.coeffs[j] != 0 {
			row.coeffs[j] = field.Mul(row.coeffs[j], coef)
		}
	}
	if err := scaleBuffer(field, row.symbol.Bytes(), coef); err != nil {
		return err
	}
	return scaleBuffer(field, row.userSize, coef)
}

// eliminateRow computes target -= coef * pivot across coefficients and
// RHS alike (characteristic 2, so subtraction is addition is XOR).
func eliminateRow(field galois.Field, target, pivot *decodeRow, coef uint32) error {
	for j := range target.coeffs {
		if pivot.coeffs[j] != 0 {
			target.coeffs[j] ^= field.Mul(coef, pivot.coeffs[j])
		}
	}
	if err := field.MultiplyAdd(target.symbol.Bytes(), coef, pivot.symbol.Bytes()); err != nil {
		return err
	}
	return field.MultiplyAdd(target.userSize, coef, pivot.userSize)
}
