// Copyright 2020 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package flags

import (
	"io"

	cli "gopkg.in/urfave/cli.v1"
)

// NewApp creates the forkschedule app with every flag group registered.
// Output goes to w.
func NewApp(w io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "forkschedule"
	app.Usage = "Inspect the BFT header rules in force at each block height"
	app.Version = "0.1.0"
	app.Writer = w
	app.ErrWriter = w

	app.Flags = append(app.Flags, CommonFlags()...)
	app.Flags = append(app.Flags, NetworkFlags()...)
	app.Flags = append(app.Flags, QueryFlags()...)
	return app
}
