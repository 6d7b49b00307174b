// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"fmt"
	"io"
	"os"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// barReader couples a ReadCloser with the progress bar tracking it.
// Closing it closes the delegate and clears the progress line from the
// terminal.
type barReader struct {
	r   io.ReadCloser
	bar *pb.ProgressBar
}

// WrapInputFile wraps f in a reader whose progress bar tracks the bytes
// read relative to the file size.  Stdin has no known size and is
// returned unwrapped.
func WrapInputFile(f *os.File) (io.ReadCloser, error) {
	if f == os.Stdin {
		return os.Stdin, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bar := pb.New(int(fi.Size())).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	return barReader{r: bar.NewProxyReader(f), bar: bar}, nil
}

func (b barReader) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b barReader) Close() error {
	// keep Finish from printing a trailing newline
	b.bar.Output = nil
	b.bar.NotPrint = true
	b.bar.Finish()

	fmt.Fprintf(os.Stderr, "\033[2K\r") // clear status bar

	return b.r.Close()
}
