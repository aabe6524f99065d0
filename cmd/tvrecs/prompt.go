package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// parseSelection turns "all", "none" or a comma separated list of 1-based
// positions into sorted zero-based indexes.
func parseSelection(input string, count int) ([]int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "", "none", "n", "no":
		return nil, nil
	case "all", "a", "y", "yes":
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	var out []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > count {
			return nil, fmt.Errorf("invalid selection %q: enter numbers between 1 and %d, 'all' or 'none'", part, count)
		}
		out = append(out, n-1)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// promptSelection asks which of count items to act on, re-asking on invalid
// input until the reader is exhausted.
func promptSelection(in io.Reader, out io.Writer, question string, count int) ([]int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s [1-%d, all, none]: ", question, count)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return nil, scanner.Err()
		}
		picked, err := parseSelection(scanner.Text(), count)
		if err == nil {
			return picked, nil
		}
		fmt.Fprintln(out, err)
	}
}

// confirm asks a yes/no question; anything but yes declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return false, scanner.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
