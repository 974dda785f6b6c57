// Package http provides the HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints, all requiring an identity
// resolved by the gateway in front of this service (X-User-ID, X-Admin):
//   - POST /bookings: creates a booking; a request carrying a `recurrence`
//     object creates a recurring series instead and responds with the parent
//     booking, the created count, and any skipped occurrence dates.
//   - GET /bookings/{id}, PATCH /bookings/{id}, DELETE /bookings/{id}:
//     retrieval, partial update, and cancellation of a single booking.
//   - POST /bookings/{id}/check-in, /bookings/{id}/end, /bookings/{id}/extend:
//     lifecycle transitions; extend takes {"minutes": N}.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room catalog endpoints; mutations require admin.
//   - GET /rooms/{id}/bookings?date=YYYY-MM-DD: a room's bookings, optionally
//     narrowed to one day.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
