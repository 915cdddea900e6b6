package docs

import (
	"context"
	"sort"
	"strings"
)

// Builtin serves documentation for common standard library types from a
// static table.
type Builtin struct{}

// Lookup returns the builtin documentation of typeName.
func (Builtin) Lookup(_ context.Context, typeName string) (*CachedDocs, error) {
	key := Key(typeName)
	methods, ok := stdMethods[key]
	if !ok {
		return nil, nil
	}
	return &CachedDocs{TypeName: key, Methods: methods, Source: "builtin"}, nil
}

func sig(name, signature, doc string) Method {
	return Method{Name: name, Signature: signature, Documentation: doc}
}

var strMethods = []Method{
	sig("len", "fn len(&self) -> usize", "Returns the length in bytes."),
	sig("is_empty", "fn is_empty(&self) -> bool", "Returns true if the length is zero."),
	sig("chars", "fn chars(&self) -> Chars<'_>", "Returns an iterator over the chars."),
	sig("bytes", "fn bytes(&self) -> Bytes<'_>", "Returns an iterator over the bytes."),
	sig("lines", "fn lines(&self) -> Lines<'_>", "Returns an iterator over the lines."),
	sig("split", "fn split<P: Pattern>(&self, pat: P) -> Split<'_, P>", "Splits by a pattern."),
	sig("split_whitespace", "fn split_whitespace(&self) -> SplitWhitespace<'_>", "Splits by whitespace."),
	sig("trim", "fn trim(&self) -> &str", "Removes leading and trailing whitespace."),
	sig("trim_start", "fn trim_start(&self) -> &str", "Removes leading whitespace."),
	sig("trim_end", "fn trim_end(&self) -> &str", "Removes trailing whitespace."),
	sig("starts_with", "fn starts_with<P: Pattern>(&self, pat: P) -> bool", "Prefix test."),
	sig("ends_with", "fn ends_with<P: Pattern>(&self, pat: P) -> bool", "Suffix test."),
	sig("contains", "fn contains<P: Pattern>(&self, pat: P) -> bool", "Substring test."),
	sig("find", "fn find<P: Pattern>(&self, pat: P) -> Option<usize>", "Byte index of the first match."),
	sig("replace", "fn replace<P: Pattern>(&self, from: P, to: &str) -> String", "Replaces all matches."),
	sig("to_uppercase", "fn to_uppercase(&self) -> String", "Uppercase copy."),
	sig("to_lowercase", "fn to_lowercase(&self) -> String", "Lowercase copy."),
	sig("to_string", "fn to_string(&self) -> String", "Owned copy."),
	sig("to_owned", "fn to_owned(&self) -> String", "Owned copy."),
	sig("parse", "fn parse<F: FromStr>(&self) -> Result<F, F::Err>", "Parses into another type."),
	sig("as_bytes", "fn as_bytes(&self) -> &[u8]", "Byte view."),
	sig("char_indices", "fn char_indices(&self) -> CharIndices<'_>", "Chars with byte offsets."),
	sig("repeat", "fn repeat(&self, n: usize) -> String", "Repeats the string n times."),
}

var stringMethods = append([]Method{
	sig("push", "fn push(&mut self, ch: char)", "Appends a char."),
	sig("push_str", "fn push_str(&mut self, string: &str)", "Appends a string slice."),
	sig("pop", "fn pop(&mut self) -> Option<char>", "Removes the last char."),
	sig("clear", "fn clear(&mut self)", "Truncates to zero length."),
	sig("capacity", "fn capacity(&self) -> usize", "Allocated capacity in bytes."),
	sig("insert", "fn insert(&mut self, idx: usize, ch: char)", "Inserts a char at a byte index."),
	sig("insert_str", "fn insert_str(&mut self, idx: usize, string: &str)", "Inserts a string slice."),
	sig("truncate", "fn truncate(&mut self, new_len: usize)", "Shortens the string."),
	sig("as_str", "fn as_str(&self) -> &str", "Borrows the whole string."),
	sig("into_bytes", "fn into_bytes(self) -> Vec<u8>", "Consumes into the byte vector."),
	sig("clone", "fn clone(&self) -> String", "Copies the string."),
}, strMethods...)

var sliceMethods = []Method{
	sig("len", "fn len(&self) -> usize", "Number of elements."),
	sig("is_empty", "fn is_empty(&self) -> bool", "True if there are no elements."),
	sig("iter", "fn iter(&self) -> Iter<'_, T>", "Iterator over references."),
	sig("iter_mut", "fn iter_mut(&mut self) -> IterMut<'_, T>", "Iterator over mutable references."),
	sig("first", "fn first(&self) -> Option<&T>", "First element."),
	sig("last", "fn last(&self) -> Option<&T>", "Last element."),
	sig("get", "fn get(&self, index: usize) -> Option<&T>", "Element at index."),
	sig("contains", "fn contains(&self, x: &T) -> bool", "Membership test."),
	sig("sort", "fn sort(&mut self)", "Stable sort."),
	sig("sort_by", "fn sort_by<F>(&mut self, compare: F)", "Stable sort with a comparator."),
	sig("sort_unstable", "fn sort_unstable(&mut self)", "Unstable sort."),
	sig("reverse", "fn reverse(&mut self)", "Reverses in place."),
	sig("windows", "fn windows(&self, size: usize) -> Windows<'_, T>", "Overlapping windows."),
	sig("chunks", "fn chunks(&self, chunk_size: usize) -> Chunks<'_, T>", "Non-overlapping chunks."),
	sig("join", "fn join<Separator>(&self, sep: Separator) -> String", "Joins with a separator."),
	sig("to_vec", "fn to_vec(&self) -> Vec<T>", "Copies into a Vec."),
	sig("binary_search", "fn binary_search(&self, x: &T) -> Result<usize, usize>", "Binary search."),
}

var vecMethods = append([]Method{
	sig("push", "fn push(&mut self, value: T)", "Appends an element."),
	sig("pop", "fn pop(&mut self) -> Option<T>", "Removes the last element."),
	sig("insert", "fn insert(&mut self, index: usize, element: T)", "Inserts at index."),
	sig("remove", "fn remove(&mut self, index: usize) -> T", "Removes at index."),
	sig("clear", "fn clear(&mut self)", "Removes all elements."),
	sig("truncate", "fn truncate(&mut self, len: usize)", "Shortens the vector."),
	sig("extend", "fn extend<I: IntoIterator<Item = T>>(&mut self, iter: I)", "Appends from an iterator."),
	sig("retain", "fn retain<F>(&mut self, f: F)", "Keeps matching elements."),
	sig("dedup", "fn dedup(&mut self)", "Removes consecutive duplicates."),
	sig("drain", "fn drain<R>(&mut self, range: R) -> Drain<'_, T>", "Removes a range."),
	sig("capacity", "fn capacity(&self) -> usize", "Allocated capacity."),
	sig("as_slice", "fn as_slice(&self) -> &[T]", "Borrows as a slice."),
	sig("into_iter", "fn into_iter(self) -> IntoIter<T>", "Consuming iterator."),
	sig("clone", "fn clone(&self) -> Vec<T>", "Copies the vector."),
}, sliceMethods...)

var optionMethods = []Method{
	sig("is_some", "fn is_some(&self) -> bool", "True for Some."),
	sig("is_none", "fn is_none(&self) -> bool", "True for None."),
	sig("unwrap", "fn unwrap(self) -> T", "Panics on None."),
	sig("expect", "fn expect(self, msg: &str) -> T", "Panics with msg on None."),
	sig("unwrap_or", "fn unwrap_or(self, default: T) -> T", "Value or default."),
	sig("unwrap_or_default", "fn unwrap_or_default(self) -> T", "Value or Default::default()."),
	sig("unwrap_or_else", "fn unwrap_or_else<F: FnOnce() -> T>(self, f: F) -> T", "Value or computed default."),
	sig("map", "fn map<U, F: FnOnce(T) -> U>(self, f: F) -> Option<U>", "Maps the value."),
	sig("and_then", "fn and_then<U, F: FnOnce(T) -> Option<U>>(self, f: F) -> Option<U>", "Chains."),
	sig("ok_or", "fn ok_or<E>(self, err: E) -> Result<T, E>", "Converts to Result."),
	sig("as_ref", "fn as_ref(&self) -> Option<&T>", "Borrows the value."),
	sig("as_deref", "fn as_deref(&self) -> Option<&T::Target>", "Derefs the value."),
	sig("take", "fn take(&mut self) -> Option<T>", "Takes the value, leaving None."),
	sig("filter", "fn filter<P: FnOnce(&T) -> bool>(self, predicate: P) -> Option<T>", "Filters the value."),
}

var resultMethods = []Method{
	sig("is_ok", "fn is_ok(&self) -> bool", "True for Ok."),
	sig("is_err", "fn is_err(&self) -> bool", "True for Err."),
	sig("unwrap", "fn unwrap(self) -> T", "Panics on Err."),
	sig("expect", "fn expect(self, msg: &str) -> T", "Panics with msg on Err."),
	sig("unwrap_or", "fn unwrap_or(self, default: T) -> T", "Value or default."),
	sig("unwrap_or_default", "fn unwrap_or_default(self) -> T", "Value or Default::default()."),
	sig("ok", "fn ok(self) -> Option<T>", "Discards the error."),
	sig("err", "fn err(self) -> Option<E>", "Discards the value."),
	sig("map", "fn map<U, F: FnOnce(T) -> U>(self, op: F) -> Result<U, E>", "Maps the value."),
	sig("map_err", "fn map_err<F, O: FnOnce(E) -> F>(self, op: O) -> Result<T, F>", "Maps the error."),
	sig("and_then", "fn and_then<U, F: FnOnce(T) -> Result<U, E>>(self, op: F) -> Result<U, E>", "Chains."),
	sig("as_ref", "fn as_ref(&self) -> Result<&T, &E>", "Borrows the contents."),
}

var mapMethods = []Method{
	sig("insert", "fn insert(&mut self, k: K, v: V) -> Option<V>", "Inserts a pair."),
	sig("get", "fn get<Q>(&self, k: &Q) -> Option<&V>", "Looks up a key."),
	sig("get_mut", "fn get_mut<Q>(&mut self, k: &Q) -> Option<&mut V>", "Looks up a key mutably."),
	sig("remove", "fn remove<Q>(&mut self, k: &Q) -> Option<V>", "Removes a key."),
	sig("contains_key", "fn contains_key<Q>(&self, k: &Q) -> bool", "Membership test."),
	sig("entry", "fn entry(&mut self, key: K) -> Entry<'_, K, V>", "Entry API."),
	sig("keys", "fn keys(&self) -> Keys<'_, K, V>", "Iterator over keys."),
	sig("values", "fn values(&self) -> Values<'_, K, V>", "Iterator over values."),
	sig("iter", "fn iter(&self) -> Iter<'_, K, V>", "Iterator over pairs."),
	sig("len", "fn len(&self) -> usize", "Number of pairs."),
	sig("is_empty", "fn is_empty(&self) -> bool", "True if empty."),
	sig("clear", "fn clear(&mut self)", "Removes all pairs."),
}

var setMethods = []Method{
	sig("insert", "fn insert(&mut self, value: T) -> bool", "Adds a value."),
	sig("contains", "fn contains<Q>(&self, value: &Q) -> bool", "Membership test."),
	sig("remove", "fn remove<Q>(&mut self, value: &Q) -> bool", "Removes a value."),
	sig("len", "fn len(&self) -> usize", "Number of values."),
	sig("is_empty", "fn is_empty(&self) -> bool", "True if empty."),
	sig("iter", "fn iter(&self) -> Iter<'_, T>", "Iterator over values."),
	sig("union", "fn union<'a>(&'a self, other: &'a HashSet<T>) -> Union<'a, T>", "Set union."),
	sig("intersection", "fn intersection<'a>(&'a self, other: &'a HashSet<T>) -> Intersection<'a, T>", "Set intersection."),
}

var intMethods = []Method{
	sig("abs", "fn abs(self) -> Self", "Absolute value."),
	sig("pow", "fn pow(self, exp: u32) -> Self", "Exponentiation."),
	sig("checked_add", "fn checked_add(self, rhs: Self) -> Option<Self>", "Checked addition."),
	sig("checked_sub", "fn checked_sub(self, rhs: Self) -> Option<Self>", "Checked subtraction."),
	sig("checked_mul", "fn checked_mul(self, rhs: Self) -> Option<Self>", "Checked multiplication."),
	sig("saturating_add", "fn saturating_add(self, rhs: Self) -> Self", "Saturating addition."),
	sig("saturating_sub", "fn saturating_sub(self, rhs: Self) -> Self", "Saturating subtraction."),
	sig("wrapping_add", "fn wrapping_add(self, rhs: Self) -> Self", "Wrapping addition."),
	sig("min", "fn min(self, other: Self) -> Self", "Smaller of two values."),
	sig("max", "fn max(self, other: Self) -> Self", "Larger of two values."),
	sig("to_string", "fn to_string(&self) -> String", "Decimal representation."),
	sig("count_ones", "fn count_ones(self) -> u32", "Number of set bits."),
	sig("leading_zeros", "fn leading_zeros(self) -> u32", "Leading zero bits."),
	sig("is_positive", "fn is_positive(self) -> bool", "True if greater than zero."),
	sig("signum", "fn signum(self) -> Self", "Sign of the number."),
}

var floatMethods = []Method{
	sig("abs", "fn abs(self) -> Self", "Absolute value."),
	sig("sqrt", "fn sqrt(self) -> Self", "Square root."),
	sig("powi", "fn powi(self, n: i32) -> Self", "Integer power."),
	sig("powf", "fn powf(self, n: Self) -> Self", "Float power."),
	sig("floor", "fn floor(self) -> Self", "Rounds down."),
	sig("ceil", "fn ceil(self) -> Self", "Rounds up."),
	sig("round", "fn round(self) -> Self", "Rounds to nearest."),
	sig("is_nan", "fn is_nan(self) -> bool", "NaN test."),
	sig("min", "fn min(self, other: Self) -> Self", "Smaller of two values."),
	sig("max", "fn max(self, other: Self) -> Self", "Larger of two values."),
	sig("to_string", "fn to_string(&self) -> String", "Decimal representation."),
}

var stdMethods = map[string][]Method{
	"str":      strMethods,
	"String":   stringMethods,
	"[]":       sliceMethods,
	"Vec":      vecMethods,
	"VecDeque": vecMethods,
	"Option":   optionMethods,
	"Result":   resultMethods,
	"HashMap":  mapMethods,
	"BTreeMap": mapMethods,
	"HashSet":  setMethods,
	"BTreeSet": setMethods,
	"i8":       intMethods, "i16": intMethods, "i32": intMethods, "i64": intMethods, "i128": intMethods, "isize": intMethods,
	"u8": intMethods, "u16": intMethods, "u32": intMethods, "u64": intMethods, "u128": intMethods, "usize": intMethods,
	"f32": floatMethods, "f64": floatMethods,
}

// TraitRef names a trait that provides a method once imported.
type TraitRef struct {
	Name string // Write
	Path string // std::io::Write
}

// stdTraitMethods lists methods that resolve only with their trait in scope.
// Prelude traits are not listed.
var stdTraitMethods = map[string][]TraitRef{
	"write_all":       {{"Write", "std::io::Write"}},
	"write_fmt":       {{"Write", "std::io::Write"}, {"Write", "std::fmt::Write"}},
	"flush":           {{"Write", "std::io::Write"}},
	"write_str":       {{"Write", "std::fmt::Write"}},
	"write_char":      {{"Write", "std::fmt::Write"}},
	"read_to_string":  {{"Read", "std::io::Read"}},
	"read_to_end":     {{"Read", "std::io::Read"}},
	"read_exact":      {{"Read", "std::io::Read"}},
	"read_line":       {{"BufRead", "std::io::BufRead"}},
	"lines":           {{"BufRead", "std::io::BufRead"}},
	"seek":            {{"Seek", "std::io::Seek"}},
	"rewind":          {{"Seek", "std::io::Seek"}},
	"from_str":        {{"FromStr", "std::str::FromStr"}},
	"hash":            {{"Hash", "std::hash::Hash"}},
	"finish":          {{"Hasher", "std::hash::Hasher"}},
	"to_socket_addrs": {{"ToSocketAddrs", "std::net::ToSocketAddrs"}},
	"as_raw_fd":       {{"AsRawFd", "std::os::unix::io::AsRawFd"}},
	"from_raw_fd":     {{"FromRawFd", "std::os::unix::io::FromRawFd"}},
	"metadata_ext":    {{"MetadataExt", "std::os::unix::fs::MetadataExt"}},
	"mode":            {{"PermissionsExt", "std::os::unix::fs::PermissionsExt"}},
	"set_mode":        {{"PermissionsExt", "std::os::unix::fs::PermissionsExt"}},
}

// TraitsProviding returns the standard traits whose import makes method
// callable.
func TraitsProviding(method string) []TraitRef {
	return stdTraitMethods[method]
}

// stdPaths maps well-known standard library names to their full paths.
var stdPaths = map[string]string{
	"HashMap":    "std::collections::HashMap",
	"HashSet":    "std::collections::HashSet",
	"BTreeMap":   "std::collections::BTreeMap",
	"BTreeSet":   "std::collections::BTreeSet",
	"VecDeque":   "std::collections::VecDeque",
	"BinaryHeap": "std::collections::BinaryHeap",
	"Rc":         "std::rc::Rc",
	"Weak":       "std::rc::Weak",
	"Arc":        "std::sync::Arc",
	"Mutex":      "std::sync::Mutex",
	"RwLock":     "std::sync::RwLock",
	"RefCell":    "std::cell::RefCell",
	"Cell":       "std::cell::Cell",
	"Path":       "std::path::Path",
	"PathBuf":    "std::path::PathBuf",
	"File":       "std::fs::File",
	"Duration":   "std::time::Duration",
	"Instant":    "std::time::Instant",
	"Ordering":   "std::cmp::Ordering",
	"Reverse":    "std::cmp::Reverse",
	"Cow":        "std::borrow::Cow",
	"BufReader":  "std::io::BufReader",
	"BufWriter":  "std::io::BufWriter",
	"Cursor":     "std::io::Cursor",
	"Display":    "std::fmt::Display",
	"Debug":      "std::fmt::Debug",
	"Formatter":  "std::fmt::Formatter",
	"FromStr":    "std::str::FromStr",
	"Error":      "std::error::Error",
	"PhantomData": "std::marker::PhantomData",
	"fmt":        "std::fmt",
	"io":         "std::io",
	"fs":         "std::fs",
	"mem":        "std::mem",
	"env":        "std::env",
	"thread":     "std::thread",
	"mpsc":       "std::sync::mpsc",
}

// StdPath returns the full path of a well-known standard library name.
func StdPath(name string) (string, bool) {
	p, ok := stdPaths[name]
	return p, ok
}

// StdNames returns every name StdPath knows, sorted.
func StdNames() []string {
	out := make([]string, 0, len(stdPaths))
	for k := range stdPaths {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsPrelude reports whether a type name is available without imports.
func IsPrelude(name string) bool {
	switch strings.TrimSpace(name) {
	case "String", "Vec", "Option", "Some", "None", "Result", "Ok", "Err", "Box", "ToString", "ToOwned",
		"Clone", "Copy", "Default", "Iterator", "IntoIterator", "From", "Into", "TryFrom", "TryInto",
		"AsRef", "AsMut", "Drop", "Fn", "FnMut", "FnOnce", "PartialEq", "Eq", "PartialOrd", "Ord", "Send", "Sync", "Sized":
		return true
	}
	return false
}

// TraitMethods returns every method name TraitsProviding knows, sorted.
func TraitMethods() []string {
	out := make([]string, 0, len(stdTraitMethods))
	for k := range stdTraitMethods {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
