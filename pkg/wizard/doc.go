/*
Package wizard implements the configuration session state machine.

A Machine turns one command into the next session and a Reply view. It walks a user
from a template search through one value per attribute, the internal reference and
barcode, and a review step that either reuses the exact existing variant or creates
it. Failures from the configurator are attached to the session as a notice; they
never escape as errors.

A Service runs the Machine against a session.Manager so that inputs of one user are
applied in order and different users proceed independently.
*/
package wizard
