package templates

import "rectify/internal/fix"

// builtin is the fixed template set loaded on first use. Order matters only
// for listing; lookups sort by confidence.
func builtin() []Template {
	return []Template{
		// строки
		{Name: "str_to_string", Category: CategoryString, From: "&str", To: "String",
			Replacement: ".to_string()", Confidence: 0.95, Safety: fix.Safe,
			Description: "convert a string slice into an owned String"},
		{Name: "string_from", Category: CategoryString, From: "&str", To: "String",
			Replacement: "String::from({})", Confidence: 0.9, Safety: fix.Safe,
			Description: "build an owned String from a string slice"},
		{Name: "string_as_str", Category: CategoryString, From: "String", To: "&str",
			Replacement: ".as_str()", Confidence: 0.9, Safety: fix.Safe,
			Description: "borrow a String as a string slice"},
		{Name: "string_borrow", Category: CategoryString, From: "String", To: "&str",
			Replacement: "&{}", Confidence: 0.88, Safety: fix.Safe,
			Description: "borrow a String, relying on deref coercion"},
		{Name: "ref_string_to_owned", Category: CategoryString, From: "&String", To: "String",
			Replacement: ".clone()", Confidence: 0.9, Safety: fix.Safe,
			Description: "clone the referenced String"},

		// Option / Result
		{Name: "option_expect", Category: CategoryOption, From: "Option<T>", To: "T",
			Replacement: `.expect("value")`, Confidence: 0.75, Safety: fix.RequiresReview,
			Description: "unwrap an Option, panicking with a message when it is None"},
		{Name: "option_unwrap_or_default", Category: CategoryOption, From: "Option<T>", To: "T",
			Replacement: ".unwrap_or_default()", Confidence: 0.72, Safety: fix.RequiresReview,
			Description: "unwrap an Option, falling back to the default value"},
		{Name: "result_expect", Category: CategoryOption, From: "Result<T, E>", To: "T",
			Replacement: `.expect("value")`, Confidence: 0.7, Safety: fix.RequiresReview,
			Description: "unwrap a Result, panicking with a message on Err"},
		{Name: "result_try", Category: CategoryOption, From: "Result<T, E>", To: "T",
			Replacement: "?", Confidence: 0.72, Safety: fix.RequiresReview,
			Description: "propagate the error to the caller"},
		{Name: "result_ok", Category: CategoryOption, From: "Result<T, E>", To: "Option<T>",
			Replacement: ".ok()", Confidence: 0.85, Safety: fix.RequiresReview,
			Description: "discard the error of a Result"},
		{Name: "option_ok_or", Category: CategoryOption, From: "Option<T>", To: "Result<T, E>",
			Replacement: ".ok_or_else(|| todo!())", Confidence: 0.6, Safety: fix.RequiresReview,
			Description: "turn None into an error that still has to be written"},
		{Name: "option_as_deref", Category: CategoryOption, From: "Option<String>", To: "Option<&str>",
			Replacement: ".as_deref()", Confidence: 0.92, Safety: fix.Safe,
			Description: "borrow the String inside an Option"},
		{Name: "option_as_ref", Category: CategoryOption, From: "&Option<T>", To: "Option<&T>",
			Replacement: ".as_ref()", Confidence: 0.9, Safety: fix.Safe,
			Description: "borrow the value inside a referenced Option"},
		{Name: "wrap_some", Category: CategoryOption, From: "T", To: "Option<T>",
			Replacement: "Some({})", Confidence: 0.9, Safety: fix.Safe, Guard: notWrapped,
			Description: "wrap a value in Some"},
		{Name: "wrap_ok", Category: CategoryOption, From: "T", To: "Result<T, E>",
			Replacement: "Ok({})", Confidence: 0.88, Safety: fix.Safe, Guard: notWrapped,
			Description: "wrap a value in Ok"},

		// ссылки
		{Name: "borrow", Category: CategoryReference, From: "T", To: "&T",
			Replacement: "&{}", Confidence: 0.9, Safety: fix.Safe,
			Description: "borrow the value"},
		{Name: "borrow_mut", Category: CategoryReference, From: "T", To: "&mut T",
			Replacement: "&mut {}", Confidence: 0.85, Safety: fix.RequiresReview,
			Description: "borrow the value mutably"},
		{Name: "reborrow_shared", Category: CategoryReference, From: "&mut T", To: "&T",
			Replacement: "&*{}", Confidence: 0.85, Safety: fix.Safe,
			Description: "reborrow a mutable reference as shared"},
		{Name: "deref_copy", Category: CategoryReference, From: "&T", To: "T",
			Replacement: "*{}", Confidence: 0.9, Safety: fix.Safe, Guard: copyPointee,
			Description: "dereference a reference to a Copy value"},
		{Name: "clone_ref", Category: CategoryReference, From: "&T", To: "T",
			Replacement: ".clone()", Confidence: 0.8, Safety: fix.RequiresReview, Guard: notCopyPointee,
			Description: "clone the referenced value"},
		{Name: "slice_to_vec", Category: CategoryReference, From: "&[T]", To: "Vec<T>",
			Replacement: ".to_vec()", Confidence: 0.9, Safety: fix.Safe,
			Description: "copy a slice into a new Vec"},
		{Name: "vec_as_slice", Category: CategoryReference, From: "Vec<T>", To: "&[T]",
			Replacement: "&{}", Confidence: 0.9, Safety: fix.Safe,
			Description: "borrow a Vec as a slice"},

		// числа
		{Name: "numeric_from", Category: CategoryNumeric, From: "N", To: "M",
			Replacement: "{to}::from({})", Confidence: 0.92, Safety: fix.Safe, Guard: losslessPair,
			Description: "lossless numeric conversion"},
		{Name: "numeric_try_from", Category: CategoryNumeric, From: "N", To: "M",
			Replacement: `{to}::try_from({}).expect("value out of range")`, Confidence: 0.7, Safety: fix.RequiresReview,
			Guard:       lossyPair,
			Description: "checked numeric conversion that panics when out of range"},
		{Name: "numeric_cast", Category: CategoryNumeric, From: "N", To: "M",
			Replacement: "{} as {to}", Confidence: 0.65, Safety: fix.RequiresReview, Guard: numericPair,
			Description: "primitive cast; may truncate or change sign"},

		// Box
		{Name: "box_new", Category: CategoryBox, From: "T", To: "Box<T>",
			Replacement: "Box::new({})", Confidence: 0.9, Safety: fix.Safe, Guard: notWrapped,
			Description: "move the value to the heap"},
		{Name: "box_deref", Category: CategoryBox, From: "Box<T>", To: "T",
			Replacement: "*{}", Confidence: 0.8, Safety: fix.RequiresReview,
			Description: "move the value out of the box"},
		{Name: "box_as_ref", Category: CategoryBox, From: "&Box<T>", To: "&T",
			Replacement: ".as_ref()", Confidence: 0.85, Safety: fix.Safe,
			Description: "borrow the boxed value"},
	}
}
