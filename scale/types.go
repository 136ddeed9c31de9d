package scale

// Enum marks a struct as a tagged union. Embed it as the first field; every
// other exported field must be a pointer and names one variant, in order.
// Exactly one variant pointer is non-nil in a valid value.
//
//	type Shape struct {
//		scale.Enum
//		Empty  *struct{}
//		Circle *uint32
//		Rect   *struct{ W, H uint32 }
//	}
type Enum struct{}

// Unit is the empty tuple. It encodes to zero bytes.
type Unit struct{}

// Option is an optional value, encoded as 0x00 or 0x01 followed by the value.
type Option[T any] struct {
	Value T
	Some  bool
}

func (Option[T]) scaleOption() {}

// Some wraps v in a present Option.
func Some[T any](v T) Option[T] {
	return Option[T]{Value: v, Some: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Some
}

// Result carries either an Ok value or an Err value, encoded as 0x00 + Ok
// or 0x01 + Err.
type Result[T, E any] struct {
	Ok    T
	Err   E
	IsErr bool
}

func (Result[T, E]) scaleResult() {}

// Ok builds a successful Result.
func Ok[T, E any](v T) Result[T, E] {
	return Result[T, E]{Ok: v}
}

// Err builds a failed Result.
func Err[T, E any](e E) Result[T, E] {
	return Result[T, E]{Err: e, IsErr: true}
}

// ResultOf converts a Go (value, error) pair into a Result carrying the
// error text.
func ResultOf[T any](v T, err error) Result[T, string] {
	if err != nil {
		return Err[T](err.Error())
	}
	return Ok[T, string](v)
}

// ErrorOf converts a lone Go error into a Result with a unit Ok arm.
func ErrorOf(err error) Result[Unit, string] {
	return ResultOf(Unit{}, err)
}

// Tuple2 is a two-element tuple.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

func (Tuple2[A, B]) scaleTuple() {}

// Tuple3 is a three-element tuple.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (Tuple3[A, B, C]) scaleTuple() {}

// Tuple4 is a four-element tuple.
type Tuple4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

func (Tuple4[A, B, C, D]) scaleTuple() {}

type optionMarker interface{ scaleOption() }

type resultMarker interface{ scaleResult() }

type tupleMarker interface{ scaleTuple() }
