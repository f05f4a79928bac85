/*
   CBMDrive - Commodore floppy drive emulator
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of CBMDrive.

   CBMDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   CBMDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with CBMDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package vdrive

// matches reports whether name matches the wildcard pattern. '?' matches any
// single character, '*' any run of characters including none, and '\' makes
// the next pattern character match literally. A trailing '\' is matched as is.
//
// This is the usual greedy matcher with a single backtracking point: on a
// mismatch, the most recent '*' absorbs one more character of name. Only the
// last star ever needs revisiting, so matching is linear in space.
func matches(name, pattern []byte) bool {

	n, p := 0, 0
	starP, starN := -1, 0

	for n < len(name) {

		if p < len(pattern) {
			c := pattern[p]

			switch {
			case c == '*':
				for p < len(pattern) && pattern[p] == '*' {
					p++
				}
				if p == len(pattern) {
					return true
				}
				starP, starN = p, n
				continue

			case c == '?':
				n++
				p++
				continue

			case c == '\\' && p+1 < len(pattern):
				if pattern[p+1] == name[n] {
					n++
					p += 2
					continue
				}

			case c == name[n]:
				n++
				p++
				continue
			}
		}

		if starP < 0 {
			return false
		}
		starN++
		n, p = starN, starP
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// hasWildcards reports whether pattern contains unescaped wildcards
func hasWildcards(pattern []byte) bool {
	for ix := 0; ix < len(pattern); ix++ {
		switch pattern[ix] {
		case '\\':
			ix++
		case '*', '?':
			return true
		}
	}
	return false
}
